package transfer

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/metrics"
	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/system"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	"github.com/code-payments/solana-starter/pkg/starter/transaction"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

const (
	metricsStructName = "transfer.session"

	transferEventName = "TransferSessionTransfer"
)

var (
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// Session sends SOL from the connected wallet and mirrors the wallet's
// balance. The mirror is decremented optimistically on every confirmed
// transfer and only reread through LoadBalance.
type Session struct {
	log     *logrus.Entry
	conf    *conf
	id      uuid.UUID
	ledger  ledger.Ledger
	wallet  wallet.Adapter
	builder *transaction.Builder

	mu            sync.Mutex
	busy          bool
	balance       uint64
	balanceOwner  string
	lastSignature solana.Signature
}

// NewSession returns a session with no balance mirror. A nil builder uses the
// default builder.
func NewSession(l ledger.Ledger, w wallet.Adapter, builder *transaction.Builder, configProvider ConfigProvider) *Session {
	if builder == nil {
		builder = transaction.NewBuilder()
	}

	id := uuid.New()
	return &Session{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":    "starter/transfer",
			"session": id.String(),
		}),
		conf:    configProvider(),
		id:      id,
		ledger:  l,
		wallet:  w,
		builder: builder,
	}
}

// LoadBalance reads the connected wallet's balance into the mirror. A wallet
// with no account on the ledger has a balance of zero.
func (s *Session) LoadBalance(ctx context.Context) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "LoadBalance")
	defer tracer.End()

	owner, ok := s.wallet.PublicKey()
	if !ok {
		return 0, starter.ErrNotConnected
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return 0, starter.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	balance, err := s.loadBalance(ctx, owner)

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()

	if err != nil {
		tracer.OnError(err)
		s.log.WithError(err).WithField("method", "LoadBalance").Warn("failed to load balance")
		return 0, err
	}
	return balance, nil
}

// Transfer sends amount SOL, given as a decimal string, to recipient. The
// amount is checked against the mirror before anything is built, so a
// transfer that exceeds the last known balance is never submitted. The check
// is optimistic and the ledger may still reject the transfer.
func (s *Session) Transfer(ctx context.Context, recipient ed25519.PublicKey, amount string) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Transfer")
	defer tracer.End()

	sender, ok := s.wallet.PublicKey()
	if !ok {
		return sig, starter.ErrNotConnected
	}

	lamports, err := sol.StrToLamports(amount)
	if err != nil {
		return sig, errors.Wrapf(starter.ErrInvalidAmount, "%q: %v", amount, err)
	}
	if lamports == 0 {
		return sig, errors.Wrapf(starter.ErrInvalidAmount, "%q: must be positive", amount)
	}

	if len(recipient) != ed25519.PublicKeySize {
		return sig, ErrInvalidRecipient
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return sig, starter.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{
		"method":    "Transfer",
		"sender":    base58.Encode(sender),
		"recipient": base58.Encode(recipient),
		"lamports":  lamports,
	})

	defer func() {
		s.mu.Lock()
		if err == nil {
			if s.balanceOwner == base58.Encode(sender) {
				if lamports > s.balance {
					s.balance = 0
				} else {
					s.balance -= lamports
				}
			}
			s.lastSignature = sig
		}
		s.busy = false
		s.mu.Unlock()

		metrics.RecordEvent(ctx, transferEventName, map[string]interface{}{
			"session":   s.id.String(),
			"lamports":  lamports,
			"signature": sig.String(),
			"success":   err == nil,
		})
		if err != nil {
			tracer.OnError(err)
			log.WithError(err).Warn("transfer failed")
		}
	}()

	// The mirror is created on first use
	balance, ok := s.mirror(sender)
	if !ok {
		balance, err = s.loadBalance(ctx, sender)
		if err != nil {
			return sig, err
		}
	}

	if lamports > balance {
		return sig, errors.Wrapf(starter.ErrInsufficientFunds, "requested %s, have %s", sol.StrFromLamports(lamports), sol.StrFromLamports(balance))
	}

	ctx, cancel := context.WithTimeout(ctx, s.conf.submitTimeout.Get(ctx))
	defer cancel()

	sig, err = s.submit(ctx, sender, recipient, lamports)
	if err != nil {
		return sig, err
	}

	log.WithField("signature", sig.String()).Info("transfer confirmed")
	return sig, nil
}

// Balance returns the mirrored balance of the connected wallet, in lamports.
// The bool is false when no balance has been loaded for the wallet.
func (s *Session) Balance() (uint64, bool) {
	owner, ok := s.wallet.PublicKey()
	if !ok {
		return 0, false
	}

	return s.mirror(owner)
}

// LastSignature returns the signature of the last confirmed transfer.
func (s *Session) LastSignature() solana.Signature {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSignature
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) mirror(owner ed25519.PublicKey) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balanceOwner != base58.Encode(owner) {
		return 0, false
	}
	return s.balance, true
}

func (s *Session) loadBalance(ctx context.Context, owner ed25519.PublicKey) (uint64, error) {
	balance, err := ledger.GetBalance(ctx, s.ledger, owner)
	if err != nil {
		return 0, errors.Wrapf(err, "error getting balance for %s", base58.Encode(owner))
	}

	s.mu.Lock()
	s.balance = balance
	s.balanceOwner = base58.Encode(owner)
	s.mu.Unlock()

	return balance, nil
}

func (s *Session) submit(ctx context.Context, sender, recipient ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	checkpoint, err := s.ledger.GetCheckpoint(ctx)
	if err != nil {
		return solana.Signature{}, starter.NewSubmissionError(solana.Signature{}, errors.Wrap(err, "error getting checkpoint"))
	}

	env, err := s.builder.Build(sender, checkpoint)
	if err != nil {
		return solana.Signature{}, err
	}
	if env, err = s.builder.AddInstruction(env, system.Transfer(sender, recipient, lamports)); err != nil {
		return solana.Signature{}, err
	}

	if memo := s.conf.memo.Get(ctx); len(memo) > 0 {
		ixn, err := transaction.MakeMemoInstruction(memo)
		if err != nil {
			return solana.Signature{}, errors.Wrap(err, "invalid memo")
		}
		if env, err = s.builder.AddInstruction(env, ixn); err != nil {
			return solana.Signature{}, err
		}
	}

	opts := ledger.DefaultSubmitOptions(checkpoint)
	opts.SkipPreflight = s.conf.skipPreflight.Get(ctx)
	if commitment, err := solana.CommitmentFromString(s.conf.commitment.Get(ctx)); err == nil {
		opts.Commitment = commitment
	}

	sig, err := s.wallet.SignAndSubmit(ctx, env, s.ledger, opts)
	if err != nil {
		return sig, starter.NewSubmissionError(sig, err)
	}
	return sig, nil
}
