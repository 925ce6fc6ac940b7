package transaction

import (
	"crypto/ed25519"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
)

// MakeMemoInstruction makes a memo instruction, rejecting values the memo
// program would refuse.
func MakeMemoInstruction(value string, signers ...ed25519.PublicKey) (solana.Instruction, error) {
	if err := memo.Validate(value); err != nil {
		return solana.Instruction{}, err
	}
	return memo.Instruction(value, signers...), nil
}
