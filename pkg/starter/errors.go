package starter

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
)

var (
	// ErrNotConnected indicates no wallet is connected, so there is no fee
	// payer to build or sign a transaction with.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrNotInitialized indicates the counter has no bound on-ledger account.
	ErrNotInitialized = errors.New("counter not initialized")

	// ErrAlreadyInitialized indicates the counter is already bound to an
	// account, or an initialization is in flight.
	ErrAlreadyInitialized = errors.New("counter already initialized")

	// ErrInsufficientFunds indicates a transfer amount exceeds the sender's
	// known balance. It's raised before anything is submitted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a transfer amount that can't be represented
	// as a positive number of lamports.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBusy indicates another operation is already in flight on the session.
	ErrBusy = errors.New("operation already in progress")

	// ErrSubmission matches any *SubmissionError via errors.Is.
	ErrSubmission = errors.New("transaction submission failed")
)

// SubmissionError is returned when a transaction was rejected by the wallet
// or the ledger, or its outcome couldn't be confirmed.
type SubmissionError struct {
	// Signature is the fee payer signature, if the transaction got far enough
	// to be signed. It's the zero value otherwise.
	Signature solana.Signature

	Cause error
}

// NewSubmissionError wraps cause. A cause that's already a SubmissionError
// is returned unchanged.
func NewSubmissionError(sig solana.Signature, cause error) error {
	var existing *SubmissionError
	if errors.As(cause, &existing) {
		return existing
	}

	return &SubmissionError{
		Signature: sig,
		Cause:     cause,
	}
}

func (e *SubmissionError) Error() string {
	if e.Signature == (solana.Signature{}) {
		return fmt.Sprintf("%s: %v", ErrSubmission.Error(), e.Cause)
	}
	return fmt.Sprintf("%s (signature=%s): %v", ErrSubmission.Error(), e.Signature, e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmission
}

// TransactionError returns the on-ledger failure reason, if the transaction
// was executed and failed.
func (e *SubmissionError) TransactionError() *solana.TransactionError {
	var txErr *solana.TransactionError
	if errors.As(e.Cause, &txErr) {
		return txErr
	}
	return nil
}
