package counter

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
)

type DecompiledInstruction struct {
	Type InstructionType

	// Set for initialize only
	Payer ed25519.PublicKey

	Counter ed25519.PublicKey
}

// IsProgram reports whether the instruction at index targets the counter
// program.
func IsProgram(m solana.Message, index int) bool {
	if index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], PROGRAM_ID)
}

func DecompileInstruction(m solana.Message, index int) (*DecompiledInstruction, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}

	if len(i.Data) != 8 {
		return nil, ErrInvalidInstructionData
	}

	instructionType := instructionTypeFromData(i.Data)
	switch instructionType {
	case InstructionTypeInitialize:
		if len(i.Accounts) != 3 {
			return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
		}
		if !bytes.Equal(m.Accounts[i.Accounts[2]], SYSTEM_PROGRAM_ID) {
			return nil, errors.New("system program account missing")
		}
		return &DecompiledInstruction{
			Type:    instructionType,
			Payer:   m.Accounts[i.Accounts[0]],
			Counter: m.Accounts[i.Accounts[1]],
		}, nil
	case InstructionTypeIncrement, InstructionTypeDecrement:
		if len(i.Accounts) != 1 {
			return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
		}
		return &DecompiledInstruction{
			Type:    instructionType,
			Counter: m.Accounts[i.Accounts[0]],
		}, nil
	default:
		return nil, ErrInvalidInstructionData
	}
}
