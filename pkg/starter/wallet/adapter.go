package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/metrics"
	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	"github.com/code-payments/solana-starter/pkg/starter/transaction"
)

const (
	metricsStructName = "wallet.keypair"
)

// Adapter is a connected wallet. It pays for and signs the transactions the
// sessions build.
type Adapter interface {
	// PublicKey returns the wallet's identity. The bool is false when the
	// wallet is disconnected.
	PublicKey() (ed25519.PublicKey, bool)

	// SignAndSubmit compiles env, collects the co-signer signatures, obtains
	// the wallet's approval and signature, then submits and confirms the
	// transaction through l. The fee payer signature is returned whenever the
	// wallet signed, including when submission fails.
	SignAndSubmit(ctx context.Context, env *transaction.Envelope, l ledger.Ledger, opts ledger.SubmitOptions, cosigners ...Signer) (solana.Signature, error)
}

type KeypairOption func(*KeypairAdapter)

// WithApprover requires approval before every signature.
func WithApprover(approver Approver) KeypairOption {
	return func(a *KeypairAdapter) {
		a.approver = approver
	}
}

// KeypairAdapter is a wallet backed by a locally held ed25519 key.
type KeypairAdapter struct {
	log      *logrus.Entry
	approver Approver

	mu      sync.RWMutex
	account *common.Account
}

func NewKeypairAdapter(account *common.Account, opts ...KeypairOption) (*KeypairAdapter, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if account.PrivateKey() == nil {
		return nil, errors.New("wallet account requires a private key")
	}

	a := &KeypairAdapter{
		log:      logrus.StandardLogger().WithField("type", "starter/wallet"),
		approver: AutoApprove,
		account:  account,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// PublicKey implements Adapter.PublicKey
func (a *KeypairAdapter) PublicKey() (ed25519.PublicKey, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.account == nil {
		return nil, false
	}
	return a.account.PublicKey().ToBytes(), true
}

// Disconnect forgets the key. The adapter can't sign afterwards.
func (a *KeypairAdapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.account = nil
}

// SignAndSubmit implements Adapter.SignAndSubmit
func (a *KeypairAdapter) SignAndSubmit(ctx context.Context, env *transaction.Envelope, l ledger.Ledger, opts ledger.SubmitOptions, cosigners ...Signer) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SignAndSubmit")
	defer tracer.End()

	a.mu.RLock()
	account := a.account
	a.mu.RUnlock()

	if account == nil {
		return solana.Signature{}, starter.ErrNotConnected
	}

	log := a.log.WithFields(logrus.Fields{
		"method": "SignAndSubmit",
		"wallet": account.PublicKey().ToBase58(),
	})

	if !bytes.Equal(env.FeePayer, account.PublicKey().ToBytes()) {
		err := errors.Errorf("fee payer %s is not the connected wallet", base58.Encode(env.FeePayer))
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	txn, err := env.Compile()
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, errors.Wrap(err, "error compiling envelope")
	}

	for _, cosigner := range cosigners {
		if err := cosigner.Sign(&txn); err != nil {
			tracer.OnError(err)
			return solana.Signature{}, errors.Wrapf(err, "error applying %s signature", base58.Encode(cosigner.PublicKey()))
		}
	}

	if err := a.approver.Approve(ctx, &txn); err != nil {
		log.WithError(err).Info("transaction not approved")
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	if err := signWith(&txn, account); err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	log = log.WithField("signature", txn.Signature().String())
	log.Trace("submitting signed transaction")

	sig, err := l.SubmitAndConfirm(ctx, &txn, opts)
	if err != nil {
		tracer.OnError(err)
		return sig, err
	}
	return sig, nil
}
