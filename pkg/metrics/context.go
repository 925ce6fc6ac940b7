package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application
// used for custom events and metrics.
var NewRelicContextKey = newRelicContextKey{}

// NewContext returns a child context carrying the New Relic application. A
// nil app returns ctx unchanged, which disables all recording.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}

// StartTransaction starts a New Relic transaction for a unit of work, such
// as a single CLI command, and returns a context that carries both the app
// and the transaction. The returned end func must always be called.
func StartTransaction(ctx context.Context, app *newrelic.Application, name string) (context.Context, func()) {
	if app == nil {
		return ctx, func() {}
	}

	txn := app.StartTransaction(name)
	ctx = newrelic.NewContext(NewContext(ctx, app), txn)
	return ctx, txn.End
}
