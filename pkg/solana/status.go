package solana

import (
	"github.com/pkg/errors"
)

// Commitment is the level of cluster agreement a query or confirmation waits
// for. It serializes as the RPC config object {"commitment": <level>}.
type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

// CommitmentFromString parses a commitment level name.
func CommitmentFromString(s string) (Commitment, error) {
	for _, c := range []Commitment{CommitmentProcessed, CommitmentConfirmed, CommitmentFinalized} {
		if c.Commitment == s {
			return c, nil
		}
	}
	return Commitment{}, errors.Errorf("unknown commitment: %q", s)
}

// SignatureStatus is the node's view of a submitted transaction.
type SignatureStatus struct {
	Slot uint64

	// ErrorResult is set when the transaction landed but failed
	ErrorResult *TransactionError

	// Confirmations is nil once the transaction is rooted
	Confirmations      *int
	ConfirmationStatus string
}

func (s SignatureStatus) Finalized() bool {
	return s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
}

func (s SignatureStatus) Confirmed() bool {
	switch {
	case s.Finalized():
		return true
	case s.ConfirmationStatus == confirmationStatusConfirmed:
		return true
	default:
		return *s.Confirmations >= 1
	}
}

// Reached reports whether the status satisfies the commitment level.
func (s SignatureStatus) Reached(commitment Commitment) bool {
	switch commitment {
	case CommitmentProcessed:
		return true
	case CommitmentConfirmed:
		return s.Confirmed()
	case CommitmentFinalized:
		return s.Finalized()
	}
	return false
}
