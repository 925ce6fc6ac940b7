package counter

import (
	"crypto/ed25519"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/binary"
)

type AdjustInstructionAccounts struct {
	Counter ed25519.PublicKey
}

// NewIncrementInstruction adds one to the count. Only the fee payer signs.
func NewIncrementInstruction(accounts *AdjustInstructionAccounts) solana.Instruction {
	return newAdjustInstruction(InstructionTypeIncrement, accounts)
}

// NewDecrementInstruction subtracts one from the count. The program rejects
// the transaction when the count is already zero.
func NewDecrementInstruction(accounts *AdjustInstructionAccounts) solana.Instruction {
	return newAdjustInstruction(InstructionTypeDecrement, accounts)
}

func newAdjustInstruction(instructionType InstructionType, accounts *AdjustInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, binary.DiscriminatorSize)
	binary.PutDiscriminator(data[offset:], instructionType.discriminator(), &offset)

	return solana.Instruction{
		Program: PROGRAM_ID,

		Data: data,

		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Counter,
				IsWritable: true,
				IsSigner:   false,
			},
		},
	}
}
