package ledger

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
)

var (
	// ErrAccountNotFound indicates the account doesn't exist on the ledger.
	// Balance readers treat this as zero.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMissingFeePayerSignature indicates a transaction was submitted
	// without the fee payer's signature.
	ErrMissingFeePayerSignature = errors.New("missing fee payer signature")

	// ErrMissingSignature indicates a required co-signer didn't sign.
	ErrMissingSignature = errors.New("missing required signature")

	// ErrCheckpointExpired indicates the transaction's blockhash is no longer
	// valid and the transaction can never land.
	ErrCheckpointExpired = errors.New("checkpoint expired")
)

// Checkpoint is the recent blockhash a transaction is anchored to, along with
// the last block height at which it can still be included.
type Checkpoint struct {
	Blockhash            solana.Blockhash
	LastValidBlockHeight uint64
}

// SubmitOptions controls submission and confirmation.
type SubmitOptions struct {
	// SkipPreflight bypasses node-side simulation before broadcast.
	SkipPreflight bool

	// Commitment is the confirmation level SubmitAndConfirm waits for.
	Commitment solana.Commitment

	// LastValidBlockHeight bounds how long confirmation is awaited. Zero
	// means the caller's context is the only bound.
	LastValidBlockHeight uint64
}

// DefaultSubmitOptions matches how the starter screens submit: preflight is
// skipped and confirmation is awaited at the confirmed level.
func DefaultSubmitOptions(checkpoint *Checkpoint) SubmitOptions {
	opts := SubmitOptions{
		SkipPreflight: true,
		Commitment:    solana.CommitmentConfirmed,
	}
	if checkpoint != nil {
		opts.LastValidBlockHeight = checkpoint.LastValidBlockHeight
	}
	return opts
}

// Ledger is a handle to a Solana cluster. Implementations are safe for
// concurrent use. Each call is a single attempt.
type Ledger interface {
	// GetCheckpoint fetches a fresh checkpoint. Checkpoints are never cached.
	GetCheckpoint(ctx context.Context) (*Checkpoint, error)

	// GetAccountInfo returns ErrAccountNotFound if the account doesn't exist.
	GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (*solana.AccountInfo, error)

	// SubmitAndConfirm broadcasts a signed transaction and blocks until it
	// reaches the requested commitment, fails, or expires. The fee payer
	// signature is returned whenever the transaction was signed, including
	// on failure.
	SubmitAndConfirm(ctx context.Context, txn *solana.Transaction, opts SubmitOptions) (solana.Signature, error)
}

// Airdropper is implemented by ledgers that can mint test funds, such as
// devnet, testnet and local ledgers.
type Airdropper interface {
	RequestAirdrop(ctx context.Context, account ed25519.PublicKey, lamports uint64) (solana.Signature, error)
}

// ValidateForSubmission checks a transaction has everything required before
// it's broadcast.
func ValidateForSubmission(txn *solana.Transaction) error {
	if len(txn.Signatures) == 0 || txn.Signatures[0] == (solana.Signature{}) {
		return ErrMissingFeePayerSignature
	}

	for i, sig := range txn.Signatures {
		if sig == (solana.Signature{}) {
			return errors.Wrapf(ErrMissingSignature, "signer %s", base58.Encode(txn.Message.Accounts[i]))
		}
	}

	return nil
}

// GetBalance returns the lamport balance of an account, treating a missing
// account as empty.
func GetBalance(ctx context.Context, l Ledger, account ed25519.PublicKey) (uint64, error) {
	info, err := l.GetAccountInfo(ctx, account)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return info.Lamports, nil
}
