package counter

import (
	"crypto/ed25519"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/binary"
)

type InitializeInstructionAccounts struct {
	Payer   ed25519.PublicKey
	Counter ed25519.PublicKey
}

// NewInitializeInstruction creates the counter account with a zero count.
// Both the payer and the new counter account must sign.
func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, binary.DiscriminatorSize)
	binary.PutDiscriminator(data[offset:], InstructionTypeInitialize.discriminator(), &offset)

	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Counter,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
