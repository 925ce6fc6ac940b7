package memory

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/solana"
	compute_budget "github.com/code-payments/solana-starter/pkg/solana/computebudget"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
)

const (
	// DefaultLamportsPerSignature matches the mainnet base fee.
	DefaultLamportsPerSignature = 5000

	// DefaultCheckpointValidity is the number of blocks a blockhash remains
	// usable for, as on a real cluster.
	DefaultCheckpointValidity = 150
)

var (
	// ErrInduced is returned by every operation while errors are induced.
	ErrInduced = errors.New("induced error")
)

type accountState struct {
	lamports uint64
	owner    ed25519.PublicKey
	data     []byte
}

func (a *accountState) clone() *accountState {
	return &accountState{
		lamports: a.lamports,
		owner:    a.owner,
		data:     append([]byte(nil), a.data...),
	}
}

type Option func(*Ledger)

// WithLamportsPerSignature overrides the base fee charged per signature.
func WithLamportsPerSignature(lamports uint64) Option {
	return func(l *Ledger) {
		l.lamportsPerSignature = lamports
	}
}

// WithCheckpointValidity overrides how many blocks a checkpoint is valid for.
func WithCheckpointValidity(blocks uint64) Option {
	return func(l *Ledger) {
		l.checkpointValidity = blocks
	}
}

// Ledger is an in memory ledger.Ledger. It verifies signatures and
// checkpoints, charges fees, and executes the system, memo, compute budget
// and counter programs. Every submitted transaction lands in its own block
// and either fully applies or not at all. Fees are charged for transactions
// that fail during execution, as on a real cluster.
type Ledger struct {
	mu  sync.Mutex
	log *logrus.Entry

	lamportsPerSignature uint64
	checkpointValidity   uint64

	blockHeight uint64
	blockhashes map[solana.Blockhash]uint64
	accounts    map[string]*accountState
	processed   map[solana.Signature]*solana.TransactionError
	submissions int
	airdrops    uint64

	shouldError bool
}

// New returns a new in memory ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		log:                  logrus.StandardLogger().WithField("type", "starter/ledger/memory"),
		lamportsPerSignature: DefaultLamportsPerSignature,
		checkpointValidity:   DefaultCheckpointValidity,
		blockHeight:          1,
		blockhashes:          make(map[solana.Blockhash]uint64),
		accounts:             make(map[string]*accountState),
		processed:            make(map[solana.Signature]*solana.TransactionError),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetCheckpoint implements ledger.Ledger.GetCheckpoint
func (l *Ledger) GetCheckpoint(ctx context.Context) (*ledger.Checkpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shouldError {
		return nil, ErrInduced
	}

	var seed [16]byte
	binary.LittleEndian.PutUint64(seed[:], l.blockHeight)
	binary.LittleEndian.PutUint64(seed[8:], uint64(len(l.blockhashes)))
	blockhash := solana.Blockhash(sha256.Sum256(seed[:]))

	lastValid := l.blockHeight + l.checkpointValidity
	l.blockhashes[blockhash] = lastValid

	return &ledger.Checkpoint{
		Blockhash:            blockhash,
		LastValidBlockHeight: lastValid,
	}, nil
}

// GetAccountInfo implements ledger.Ledger.GetAccountInfo
func (l *Ledger) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (*solana.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shouldError {
		return nil, ErrInduced
	}

	state, ok := l.accounts[string(account)]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}

	return &solana.AccountInfo{
		Data:     append([]byte(nil), state.data...),
		Owner:    append(ed25519.PublicKey(nil), state.owner...),
		Lamports: state.lamports,
	}, nil
}

// SubmitAndConfirm implements ledger.Ledger.SubmitAndConfirm. Transactions
// are confirmed synchronously, so the commitment level is ignored.
func (l *Ledger) SubmitAndConfirm(ctx context.Context, txn *solana.Transaction, opts ledger.SubmitOptions) (solana.Signature, error) {
	sig := txn.Signature()

	if err := ctx.Err(); err != nil {
		return sig, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.submissions++

	if l.shouldError {
		return sig, ErrInduced
	}

	if err := ledger.ValidateForSubmission(txn); err != nil {
		return sig, err
	}

	log := l.log.WithFields(logrus.Fields{
		"method":    "SubmitAndConfirm",
		"signature": sig.String(),
	})

	if err := txn.VerifySignatures(); err != nil {
		log.WithError(err).Debug("signature verification failed")
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}

	if _, ok := l.processed[sig]; ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	lastValid, ok := l.blockhashes[txn.Message.RecentBlockhash]
	if !ok {
		return sig, solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}
	if l.blockHeight > lastValid {
		return sig, errors.Wrapf(ledger.ErrCheckpointExpired, "block height %d exceeds %d", l.blockHeight, lastValid)
	}
	if opts.LastValidBlockHeight > 0 && l.blockHeight > opts.LastValidBlockHeight {
		return sig, errors.Wrapf(ledger.ErrCheckpointExpired, "block height %d exceeds %d", l.blockHeight, opts.LastValidBlockHeight)
	}

	budget, budgetErr := decompileBudget(txn.Message)
	if budgetErr != nil {
		return sig, budgetErr
	}

	fee := l.fee(txn, budget)
	payer := l.accounts[string(txn.FeePayer())]
	if payer == nil || payer.lamports < fee {
		return sig, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	// Execution works against a copy, which is committed only when every
	// instruction succeeds. The fee is charged regardless.
	staged := l.snapshot()
	staged[string(txn.FeePayer())].lamports -= fee
	txErr := execute(staged, txn.Message)
	if txErr == nil {
		l.accounts = staged
	} else {
		payer.lamports -= fee
	}

	l.processed[sig] = txErr
	l.blockHeight++

	if txErr != nil {
		log.WithError(txErr).Debug("transaction failed")
		return sig, txErr
	}
	return sig, nil
}

// RequestAirdrop implements ledger.Airdropper.RequestAirdrop
func (l *Ledger) RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.shouldError {
		return solana.Signature{}, ErrInduced
	}

	l.credit(account, lamports)
	l.airdrops++
	l.blockHeight++

	var sig solana.Signature
	h := sha256.Sum256(append(append([]byte("airdrop"), account...), byte(l.airdrops), byte(l.airdrops>>8)))
	copy(sig[:], h[:])
	copy(sig[32:], account)
	return sig, nil
}

// Fund credits lamports to an account, creating it if necessary.
func (l *Ledger) Fund(account ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(account, lamports)
}

// SetAccount overwrites an account's lamports, owner and data.
func (l *Ledger) SetAccount(account ed25519.PublicKey, info *solana.AccountInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[string(account)] = &accountState{
		lamports: info.Lamports,
		owner:    info.Owner,
		data:     append([]byte(nil), info.Data...),
	}
}

// AdvanceBlockHeight simulates blocks being produced without any
// transactions from this ledger's clients.
func (l *Ledger) AdvanceBlockHeight(blocks uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blockHeight += blocks
}

// BlockHeight returns the current block height.
func (l *Ledger) BlockHeight() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.blockHeight
}

// SubmissionCount returns the number of SubmitAndConfirm calls, including
// ones that were rejected.
func (l *Ledger) SubmissionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.submissions
}

// GetTransactionResult returns the outcome of a processed transaction. The
// bool is false if the transaction never landed.
func (l *Ledger) GetTransactionResult(sig solana.Signature) (*solana.TransactionError, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	txErr, ok := l.processed[sig]
	return txErr, ok
}

func (l *Ledger) InduceErrors() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shouldError = true
}

func (l *Ledger) StopInducingErrors() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.shouldError = false
}

func (l *Ledger) credit(account ed25519.PublicKey, lamports uint64) {
	creditAccount(l.accounts, account, lamports)
}

func (l *Ledger) snapshot() map[string]*accountState {
	cloned := make(map[string]*accountState, len(l.accounts))
	for k, v := range l.accounts {
		cloned[k] = v.clone()
	}
	return cloned
}

func (l *Ledger) fee(txn *solana.Transaction, budget *compute_budget.Budget) uint64 {
	fee := uint64(len(txn.Signatures)) * l.lamportsPerSignature
	return fee + prioritizationFee(budget, txn.Message)
}
