package main

import (
	"context"

	"github.com/pkg/errors"

	counter_program "github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

// describeError renders the failures users can act on in plain terms.
func describeError(err error) string {
	var submissionErr *starter.SubmissionError
	if !errors.As(err, &submissionErr) {
		return err.Error()
	}

	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		return "transaction rejected in the wallet"
	case errors.Is(err, ledger.ErrCheckpointExpired):
		return "transaction expired before it was confirmed, try again"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for confirmation: " + submissionErr.Signature.String()
	}

	if txErr := submissionErr.TransactionError(); txErr != nil {
		if ixnErr := txErr.InstructionError(); ixnErr != nil {
			if code := ixnErr.CustomError(); code != nil {
				switch int(*code) {
				case counter_program.ErrorCodeCountUnderflow:
					return "the counter can't go below zero"
				case counter_program.ErrorCodeCountOverflow:
					return "the counter is at its maximum"
				}
			}
		}
		return "transaction failed: " + txErr.Error()
	}
	return err.Error()
}
