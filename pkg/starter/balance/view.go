package balance

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-starter/pkg/metrics"
	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
)

const (
	metricsStructName = "balance.view"
)

var (
	ErrNoIdentity = errors.New("no identity observed")
)

// View is a read only mirror of a single account's balance. An account that
// doesn't exist on the ledger has a balance of zero.
type View struct {
	log    *logrus.Entry
	ledger ledger.Ledger

	mu         sync.Mutex
	identity   ed25519.PublicKey
	generation uint64
	balance    uint64
	valid      bool
}

func NewView(l ledger.Ledger) *View {
	return &View{
		log:    logrus.StandardLogger().WithField("type", "starter/balance"),
		ledger: l,
	}
}

// Observe switches the view to identity and reads its balance. Observing the
// identity that's already loaded doesn't reread it.
func (v *View) Observe(ctx context.Context, identity ed25519.PublicKey) error {
	if len(identity) != ed25519.PublicKeySize {
		return errors.Errorf("invalid identity length %d", len(identity))
	}

	v.mu.Lock()
	if bytes.Equal(v.identity, identity) && v.valid {
		v.mu.Unlock()
		return nil
	}
	if !bytes.Equal(v.identity, identity) {
		v.identity = append(ed25519.PublicKey(nil), identity...)
		v.generation++
		v.balance = 0
		v.valid = false
	}
	v.mu.Unlock()

	return v.Refresh(ctx)
}

// Refresh rereads the observed identity's balance.
func (v *View) Refresh(ctx context.Context) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Refresh")
	defer tracer.End()

	v.mu.Lock()
	identity := v.identity
	generation := v.generation
	v.mu.Unlock()

	if identity == nil {
		return ErrNoIdentity
	}

	balance, err := ledger.GetBalance(ctx, v.ledger, identity)
	if err != nil {
		tracer.OnError(err)
		v.log.WithError(err).WithFields(logrus.Fields{
			"method":   "Refresh",
			"identity": base58.Encode(identity),
		}).Warn("failed to get balance")
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// The identity changed while the read was in flight
	if v.generation != generation {
		return nil
	}

	v.balance = balance
	v.valid = true
	return nil
}

// Poll refreshes the balance every interval until ctx is done. Failed
// refreshes are logged and leave the last known balance in place.
func (v *View) Poll(ctx context.Context, interval time.Duration) error {
	app, _ := ctx.Value(metrics.NewRelicContextKey).(*newrelic.Application)

	delay := time.After(0)
	for {
		select {
		case <-delay:
			start := time.Now()

			tracedCtx, end := metrics.StartTransaction(ctx, app, "starter__balance_view__poll")
			_ = v.Refresh(tracedCtx)
			end()

			delay = time.After(interval - time.Since(start))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Identity returns the observed identity, or nil.
func (v *View) Identity() ed25519.PublicKey {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.identity
}

// Balance returns the balance in lamports. The bool is false until the first
// successful read for the observed identity.
func (v *View) Balance() (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.balance, v.valid
}

// DisplayBalance renders the balance in SOL, or an empty string when it isn't
// known.
func (v *View) DisplayBalance() string {
	balance, ok := v.Balance()
	if !ok {
		return ""
	}
	return sol.StrFromLamports(balance)
}
