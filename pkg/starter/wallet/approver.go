package wallet

import (
	"context"

	"github.com/code-payments/solana-starter/pkg/solana"
)

// Approver gates every signature the wallet produces. Implementations may
// block on user input, and return ErrUserRejected when the user declines.
type Approver interface {
	Approve(ctx context.Context, txn *solana.Transaction) error
}

// ApproverFunc adapts a function to an Approver.
type ApproverFunc func(ctx context.Context, txn *solana.Transaction) error

func (f ApproverFunc) Approve(ctx context.Context, txn *solana.Transaction) error {
	return f(ctx, txn)
}

// AutoApprove approves everything without asking.
var AutoApprove Approver = ApproverFunc(func(ctx context.Context, _ *solana.Transaction) error {
	return ctx.Err()
})

// RejectAll declines everything.
var RejectAll Approver = ApproverFunc(func(_ context.Context, _ *solana.Transaction) error {
	return ErrUserRejected
})
