package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta is an account referenced by an instruction, along with the
// permissions the instruction needs on it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	// Set only while compiling a message
	isPayer   bool
	isProgram bool
}

func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey: pub,
		IsSigner:  isSigner,
	}
}

// compareAccountMeta orders accounts the way a message lists them: the payer
// first, then signers before non signers, writable before readonly, and
// programs last. Ties are broken on the key bytes.
//
// Reference: https://docs.solana.com/transaction#account-addresses-format
func compareAccountMeta(a, b AccountMeta) int {
	switch {
	case a.isPayer != b.isPayer:
		return rank(a.isPayer)
	case a.isProgram != b.isProgram:
		return -rank(a.isProgram)
	case a.IsSigner != b.IsSigner:
		return rank(a.IsSigner)
	case a.IsWritable != b.IsWritable:
		return rank(a.IsWritable)
	default:
		return bytes.Compare(a.PublicKey, b.PublicKey)
	}
}

func rank(first bool) int {
	if first {
		return -1
	}
	return 1
}

// mergeAccountMeta collapses repeated accounts into one entry holding the
// union of their permissions. First appearance order is kept.
func mergeAccountMeta(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))
	for _, account := range accounts {
		i := indexOfMeta(merged, account.PublicKey)
		if i < 0 {
			merged = append(merged, account)
			continue
		}

		merged[i].IsSigner = merged[i].IsSigner || account.IsSigner
		merged[i].IsWritable = merged[i].IsWritable || account.IsWritable
		merged[i].isPayer = merged[i].isPayer || account.isPayer
	}
	return merged
}

func indexOfMeta(accounts []AccountMeta, key ed25519.PublicKey) int {
	for i := range accounts {
		if bytes.Equal(accounts[i].PublicKey, key) {
			return i
		}
	}
	return -1
}

// Instruction is a single program invocation within a transaction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction is an Instruction whose program and accounts have been
// replaced by indexes into the message's account list.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}
