package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
)

// ProgramKey is the address of the SPL memo program (v2).
//
// Current key: MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr
var ProgramKey = ed25519.PublicKey{5, 74, 83, 90, 153, 41, 33, 6, 77, 36, 232, 113, 96, 218, 56, 124, 124, 53, 181, 221, 188, 146, 187, 129, 228, 31, 168, 64, 65, 5, 68, 141}

// MaxLength is the largest memo that reliably fits alongside a transfer in
// a single legacy transaction.
const MaxLength = 566

var (
	ErrInvalidUTF8 = errors.New("memo is not valid utf-8")
	ErrTooLong     = errors.New("memo exceeds max length")
)

// Instruction records data on chain. Any signers provided must also sign the
// enclosing transaction.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/processor.rs
func Instruction(data string, signers ...ed25519.PublicKey) solana.Instruction {
	accounts := make([]solana.AccountMeta, len(signers))
	for i, signer := range signers {
		accounts[i] = solana.NewReadonlyAccountMeta(signer, true)
	}

	return solana.NewInstruction(
		ProgramKey,
		[]byte(data),
		accounts...,
	)
}

// Validate checks a memo before it's placed into an instruction.
func Validate(data string) error {
	if !utf8.ValidString(data) {
		return ErrInvalidUTF8
	}
	if len(data) > MaxLength {
		return errors.Wrapf(ErrTooLong, "length=%d", len(data))
	}
	return nil
}

type DecompiledMemo struct {
	Data    []byte
	Signers []ed25519.PublicKey
}

func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	decompiled := &DecompiledMemo{Data: i.Data}
	for _, accountIndex := range i.Accounts {
		decompiled.Signers = append(decompiled.Signers, m.Accounts[accountIndex])
	}
	return decompiled, nil
}
