package counter

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/metrics"
	"github.com/code-payments/solana-starter/pkg/solana"
	counter_program "github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	"github.com/code-payments/solana-starter/pkg/starter/transaction"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

const (
	metricsStructName = "counter.session"

	operationEventName = "CounterSessionOperation"
)

type State uint8

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateAdjusting
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateAdjusting:
		return "adjusting"
	}
	return "unknown"
}

// mirrorKey identifies the inputs a fetched count was read under. The mirror
// is stale whenever any of them change.
type mirrorKey struct {
	ledger        ledger.Ledger
	wallet        string
	address       string
	lastSignature solana.Signature
}

// Session drives a single counter account through its lifecycle. At most one
// operation is in flight at a time, and a failed operation always leaves the
// session in the state it started in.
type Session struct {
	log     *logrus.Entry
	conf    *conf
	id      uuid.UUID
	ledger  ledger.Ledger
	wallet  wallet.Adapter
	builder *transaction.Builder

	mu            sync.Mutex
	state         State
	busy          bool
	address       ed25519.PublicKey
	lastSignature solana.Signature

	count      uint64
	countValid bool
	countKey   mirrorKey
}

// NewSession returns an uninitialized session. A nil builder uses the default
// builder.
func NewSession(l ledger.Ledger, w wallet.Adapter, builder *transaction.Builder, configProvider ConfigProvider) *Session {
	if builder == nil {
		builder = transaction.NewBuilder()
	}

	id := uuid.New()
	return &Session{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":    "starter/counter",
			"session": id.String(),
		}),
		conf:    configProvider(),
		id:      id,
		ledger:  l,
		wallet:  w,
		builder: builder,
	}
}

// Initialize creates a new counter account and binds the session to it. The
// account is a fresh keypair that co-signs its own creation. On failure the
// keypair is discarded, and a retry creates a new one.
func (s *Session) Initialize(ctx context.Context) (solana.Signature, error) {
	sig, err := s.initialize(ctx)
	if err != nil {
		return sig, err
	}

	// The transaction is confirmed, so a failed read only leaves the mirror
	// invalid until the next Refresh
	_ = s.Refresh(ctx)
	return sig, nil
}

func (s *Session) initialize(ctx context.Context) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Initialize")
	defer tracer.End()

	log := s.log.WithField("method", "Initialize")

	payer, ok := s.wallet.PublicKey()
	if !ok {
		return sig, starter.ErrNotConnected
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return sig, starter.ErrBusy
	}
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return sig, starter.ErrAlreadyInitialized
	}
	s.busy = true
	s.state = StateInitializing
	s.mu.Unlock()

	var address ed25519.PublicKey
	defer func() {
		s.mu.Lock()
		if err == nil {
			s.state = StateReady
			s.address = address
			s.lastSignature = sig
			s.countValid = false
		} else {
			s.state = StateUninitialized
		}
		s.busy = false
		s.mu.Unlock()

		s.recordOperation(ctx, "initialize", sig, err)
		if err != nil {
			tracer.OnError(err)
			log.WithError(err).Warn("failed to initialize counter")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.conf.submitTimeout.Get(ctx))
	defer cancel()

	ephemeral, err := wallet.NewEphemeralSigner()
	if err != nil {
		return sig, err
	}

	log = log.WithField("counter", base58.Encode(ephemeral.PublicKey()))

	ixn := counter_program.NewInitializeInstruction(&counter_program.InitializeInstructionAccounts{
		Payer:   payer,
		Counter: ephemeral.PublicKey(),
	})

	sig, err = s.submit(ctx, payer, ixn, ephemeral)
	if err != nil {
		return sig, err
	}

	address = ephemeral.PublicKey()
	log.WithField("signature", sig.String()).Info("counter initialized")
	return sig, nil
}

// Attach binds an uninitialized session to an existing counter account.
func (s *Session) Attach(ctx context.Context, address ed25519.PublicKey) error {
	if _, ok := s.wallet.PublicKey(); !ok {
		return starter.ErrNotConnected
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return starter.ErrBusy
	}
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return starter.ErrAlreadyInitialized
	}
	s.busy = true
	s.mu.Unlock()

	state, err := s.fetch(ctx, address)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.busy = false
	if err != nil {
		return err
	}

	s.state = StateReady
	s.address = address
	s.count = state.Count
	s.countValid = true
	s.countKey = s.currentKey()
	return nil
}

// Increment adds one to the bound counter.
func (s *Session) Increment(ctx context.Context) (solana.Signature, error) {
	return s.adjustAndRefresh(ctx, counter_program.InstructionTypeIncrement)
}

// Decrement subtracts one from the bound counter. The program rejects
// decrementing below zero, which surfaces as a *starter.SubmissionError.
func (s *Session) Decrement(ctx context.Context) (solana.Signature, error) {
	return s.adjustAndRefresh(ctx, counter_program.InstructionTypeDecrement)
}

// The mirror is never updated optimistically. It's refetched once the
// adjustment is confirmed.
func (s *Session) adjustAndRefresh(ctx context.Context, instructionType counter_program.InstructionType) (solana.Signature, error) {
	sig, err := s.adjust(ctx, instructionType)
	if err != nil {
		return sig, err
	}

	_ = s.Refresh(ctx)
	return sig, nil
}

func (s *Session) adjust(ctx context.Context, instructionType counter_program.InstructionType) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, instructionType.String())
	defer tracer.End()

	payer, ok := s.wallet.PublicKey()
	if !ok {
		return sig, starter.ErrNotConnected
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return sig, starter.ErrBusy
	}
	if s.state != StateReady || s.address == nil {
		s.mu.Unlock()
		return sig, starter.ErrNotInitialized
	}
	s.busy = true
	s.state = StateAdjusting
	address := s.address
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{
		"method":  instructionType.String(),
		"counter": base58.Encode(address),
	})

	defer func() {
		s.mu.Lock()
		if err == nil {
			s.lastSignature = sig
			s.countValid = false
		}
		s.state = StateReady
		s.busy = false
		s.mu.Unlock()

		s.recordOperation(ctx, instructionType.String(), sig, err)
		if err != nil {
			tracer.OnError(err)
			log.WithError(err).Warn("failed to adjust counter")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.conf.submitTimeout.Get(ctx))
	defer cancel()

	accounts := &counter_program.AdjustInstructionAccounts{Counter: address}

	var ixn solana.Instruction
	switch instructionType {
	case counter_program.InstructionTypeIncrement:
		ixn = counter_program.NewIncrementInstruction(accounts)
	case counter_program.InstructionTypeDecrement:
		ixn = counter_program.NewDecrementInstruction(accounts)
	default:
		return sig, errors.Errorf("unsupported instruction type: %s", instructionType)
	}

	sig, err = s.submit(ctx, payer, ixn)
	if err != nil {
		return sig, err
	}

	log.WithField("signature", sig.String()).Debug("counter adjusted")
	return sig, nil
}

// Refresh reads the bound counter from the ledger, unless the mirror was
// already read under the current wallet, address and last signature. Every
// successful operation invalidates the mirror, so the next Refresh refetches.
func (s *Session) Refresh(ctx context.Context) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Refresh")
	defer tracer.End()

	s.mu.Lock()
	key := s.currentKey()
	if s.address == nil || (s.countValid && s.countKey == key) {
		s.mu.Unlock()
		return nil
	}
	address := s.address
	s.mu.Unlock()

	state, err := s.fetch(ctx, address)
	if err != nil {
		tracer.OnError(err)
		s.log.WithError(err).WithField("method", "Refresh").Warn("failed to refresh counter")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop the result if anything changed while it was in flight
	if s.currentKey() == key {
		s.count = state.Count
		s.countValid = true
		s.countKey = key
	}
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Address returns the bound counter account, or nil if there isn't one.
func (s *Session) Address() ed25519.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.address
}

// Count returns the mirrored count. The bool is false when the mirror has
// been invalidated and not yet refreshed.
func (s *Session) Count() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.count, s.countValid
}

// LastSignature returns the signature of the last confirmed operation.
func (s *Session) LastSignature() solana.Signature {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSignature
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) submit(ctx context.Context, payer ed25519.PublicKey, ixn solana.Instruction, cosigners ...wallet.Signer) (solana.Signature, error) {
	checkpoint, err := s.ledger.GetCheckpoint(ctx)
	if err != nil {
		return solana.Signature{}, starter.NewSubmissionError(solana.Signature{}, errors.Wrap(err, "error getting checkpoint"))
	}

	env, err := s.builder.Build(payer, checkpoint)
	if err != nil {
		return solana.Signature{}, err
	}
	if env, err = s.builder.AddInstruction(env, ixn); err != nil {
		return solana.Signature{}, err
	}

	sig, err := s.wallet.SignAndSubmit(ctx, env, s.ledger, s.submitOptions(ctx, checkpoint), cosigners...)
	if err != nil {
		return sig, starter.NewSubmissionError(sig, err)
	}
	return sig, nil
}

func (s *Session) submitOptions(ctx context.Context, checkpoint *ledger.Checkpoint) ledger.SubmitOptions {
	opts := ledger.DefaultSubmitOptions(checkpoint)
	opts.SkipPreflight = s.conf.skipPreflight.Get(ctx)

	commitment, err := solana.CommitmentFromString(s.conf.commitment.Get(ctx))
	if err == nil {
		opts.Commitment = commitment
	}
	return opts
}

func (s *Session) fetch(ctx context.Context, address ed25519.PublicKey) (*counter_program.CounterAccount, error) {
	info, err := s.ledger.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, errors.Wrapf(err, "error getting counter account %s", base58.Encode(address))
	}

	if !bytes.Equal(info.Owner, counter_program.PROGRAM_ID) {
		return nil, errors.Wrapf(counter_program.ErrInvalidProgram, "counter account owned by %s", base58.Encode(info.Owner))
	}

	state := &counter_program.CounterAccount{Address: address}
	if err := state.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return state, nil
}

// currentKey must be called with mu held.
func (s *Session) currentKey() mirrorKey {
	var walletKey string
	if pub, ok := s.wallet.PublicKey(); ok {
		walletKey = base58.Encode(pub)
	}

	return mirrorKey{
		ledger:        s.ledger,
		wallet:        walletKey,
		address:       base58.Encode(s.address),
		lastSignature: s.lastSignature,
	}
}

func (s *Session) recordOperation(ctx context.Context, operation string, sig solana.Signature, err error) {
	metrics.RecordEvent(ctx, operationEventName, map[string]interface{}{
		"session":   s.id.String(),
		"operation": operation,
		"signature": sig.String(),
		"success":   err == nil,
	})
}
