package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
	solana_binary "github.com/code-payments/solana-starter/pkg/solana/binary"
)

// ProgramKey is the system program address: 11111111111111111111111111111111
var ProgramKey [32]byte

// Instruction indexes of the system program's bincode enum
const (
	commandCreateAccount uint32 = 0
	commandTransfer      uint32 = 2
)

const (
	createAccountDataSize = 4 + 8 + 8 + ed25519.PublicKeySize
	transferDataSize      = 4 + 8
)

// CreateAccount allocates size bytes at address, owned by owner and funded by
// funder. Both funder and address must sign.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	data := make([]byte, createAccountDataSize)

	var offset int
	solana_binary.PutUint32(data[offset:], commandCreateAccount, &offset)
	solana_binary.PutUint64(data[offset:], lamports, &offset)
	solana_binary.PutUint64(data[offset:], size, &offset)
	solana_binary.PutKey32(data[offset:], owner, &offset)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	i, err := getInstruction(m, index, commandCreateAccount, createAccountDataSize)
	if err != nil {
		return nil, err
	}

	v := &DecompiledCreateAccount{
		Funder:  m.Accounts[i.Accounts[0]],
		Address: m.Accounts[i.Accounts[1]],
	}

	offset := 4
	solana_binary.GetUint64(i.Data[offset:], &v.Lamports, &offset)
	solana_binary.GetUint64(i.Data[offset:], &v.Size, &offset)
	solana_binary.GetKey32(i.Data[offset:], &v.Owner, &offset)

	return v, nil
}

// Transfer moves lamports out of a system owned account. Only from signs.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L79-L84
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	data := make([]byte, transferDataSize)

	var offset int
	solana_binary.PutUint32(data[offset:], commandTransfer, &offset)
	solana_binary.PutUint64(data[offset:], lamports, &offset)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

func DecompileTransfer(m solana.Message, index int) (*DecompiledTransfer, error) {
	i, err := getInstruction(m, index, commandTransfer, transferDataSize)
	if err != nil {
		return nil, err
	}

	v := &DecompiledTransfer{
		From: m.Accounts[i.Accounts[0]],
		To:   m.Accounts[i.Accounts[1]],
	}

	offset := 4
	solana_binary.GetUint64(i.Data[offset:], &v.Lamports, &offset)

	return v, nil
}

// IsProgram reports whether the instruction at index targets the system program
func IsProgram(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], ProgramKey[:])
}

// getInstruction returns the instruction at index after checking it is the
// expected system instruction with two accounts and dataSize bytes of data
func getInstruction(m solana.Message, index int, command uint32, dataSize int) (solana.CompiledInstruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return solana.CompiledInstruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !IsProgram(m, index) {
		return i, solana.ErrIncorrectProgram
	}
	if len(i.Data) < 4 || binary.LittleEndian.Uint32(i.Data) != command {
		return i, solana.ErrIncorrectInstruction
	}

	if len(i.Accounts) != 2 {
		return i, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != dataSize {
		return i, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	return i, nil
}
