package transaction

import (
	"crypto/ed25519"
	"sync"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
	compute_budget "github.com/code-payments/solana-starter/pkg/solana/computebudget"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
)

var (
	// ErrEnvelopeSealed is returned when modifying an envelope that has
	// already been compiled into a transaction.
	ErrEnvelopeSealed = errors.New("envelope is sealed")

	ErrNoFeePayer   = errors.New("fee payer is required")
	ErrNoCheckpoint = errors.New("checkpoint is required")
	ErrNilEnvelope  = errors.New("envelope is nil")
)

type Option func(*Builder)

// WithComputeUnitPrice attaches a priority fee, in micro-lamports per compute
// unit, to every envelope the builder compiles.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(b *Builder) {
		b.computeUnitPrice = microLamports
	}
}

// WithComputeUnitLimit caps the compute units every compiled transaction may
// consume.
func WithComputeUnitLimit(units uint32) Option {
	return func(b *Builder) {
		b.computeUnitLimit = units
	}
}

// Builder creates envelopes anchored to a checkpoint. It performs no
// semantic validation of instructions; the ledger is the authority on
// whether a transaction executes.
type Builder struct {
	computeUnitPrice uint64
	computeUnitLimit uint32
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns an empty envelope paid for by feePayer. An envelope with no
// instructions is valid.
func (b *Builder) Build(feePayer ed25519.PublicKey, checkpoint *ledger.Checkpoint) (*Envelope, error) {
	if len(feePayer) != ed25519.PublicKeySize {
		return nil, ErrNoFeePayer
	}
	if checkpoint == nil {
		return nil, ErrNoCheckpoint
	}

	var prefix []solana.Instruction
	if b.computeUnitLimit > 0 {
		prefix = append(prefix, compute_budget.SetComputeUnitLimit(b.computeUnitLimit))
	}
	if b.computeUnitPrice > 0 {
		prefix = append(prefix, compute_budget.SetComputeUnitPrice(b.computeUnitPrice))
	}

	return &Envelope{
		FeePayer:   feePayer,
		Checkpoint: *checkpoint,
		budget:     prefix,
	}, nil
}

// AddInstruction appends ixn to env. Instructions execute in the order they
// were added.
func (b *Builder) AddInstruction(env *Envelope, ixn solana.Instruction) (*Envelope, error) {
	if env == nil {
		return nil, ErrNilEnvelope
	}
	if err := env.add(ixn); err != nil {
		return env, err
	}
	return env, nil
}

// Envelope is a transaction under construction. It's mutable until Compile
// seals it.
type Envelope struct {
	FeePayer   ed25519.PublicKey
	Checkpoint ledger.Checkpoint

	mu           sync.Mutex
	budget       []solana.Instruction
	instructions []solana.Instruction
	sealed       bool
}

// Instructions returns a copy of the appended instructions, excluding any
// compute budget instructions added by the builder.
func (e *Envelope) Instructions() []solana.Instruction {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]solana.Instruction(nil), e.instructions...)
}

// IsSealed reports whether Compile has been called.
func (e *Envelope) IsSealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sealed
}

// Compile seals the envelope and returns an unsigned transaction. Compute
// budget instructions come first, followed by the appended instructions in
// order. Compiling a sealed envelope again yields the same transaction.
func (e *Envelope) Compile() (solana.Transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ixns := make([]solana.Instruction, 0, len(e.budget)+len(e.instructions))
	ixns = append(ixns, e.budget...)
	ixns = append(ixns, e.instructions...)

	txn := solana.NewLegacyTransaction(e.FeePayer, ixns...)
	txn.SetBlockhash(e.Checkpoint.Blockhash)

	if _, err := txn.MarshalChecked(); err != nil {
		return solana.Transaction{}, err
	}

	e.sealed = true
	return txn, nil
}

func (e *Envelope) add(ixn solana.Instruction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sealed {
		return ErrEnvelopeSealed
	}

	e.instructions = append(e.instructions, ixn)
	return nil
}
