package compute_budget

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/solana"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "ComputeBudget111111111111111111111111111111", base58.Encode(ProgramKey))
}

func TestInstructionData(t *testing.T) {
	assert.Equal(t, []byte{2, 0x40, 0x0d, 0x03, 0x00}, SetComputeUnitLimit(200_000).Data)
	assert.Equal(t, []byte{3, 0xe8, 0x03, 0, 0, 0, 0, 0, 0}, SetComputeUnitPrice(1_000).Data)

	limit, err := ParseComputeUnitLimit(SetComputeUnitLimit(200_000).Data)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, limit)

	price, err := ParseComputeUnitPrice(SetComputeUnitPrice(1_000).Data)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000, price)

	_, err = ParseComputeUnitLimit(SetComputeUnitPrice(1_000).Data)
	assert.Equal(t, ErrUnexpectedTag, err)
	_, err = ParseComputeUnitPrice(SetComputeUnitLimit(1_000).Data)
	assert.Equal(t, ErrUnexpectedTag, err)
	_, err = ParseComputeUnitPrice(nil)
	assert.Equal(t, ErrUnexpectedTag, err)
	_, err = ParseComputeUnitLimit([]byte{2, 1})
	assert.Equal(t, ErrInvalidLength, err)
}

func TestDecompileBudget(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx := solana.NewLegacyTransaction(
		payer,
		SetComputeUnitPrice(10),
		SetComputeUnitLimit(5_000),
		solana.NewInstruction(program, []byte{1}),
	)

	assert.True(t, IsProgram(tx.Message, 0))
	assert.True(t, IsProgram(tx.Message, 1))
	assert.False(t, IsProgram(tx.Message, 2))
	assert.False(t, IsProgram(tx.Message, 3))

	budget, err := DecompileBudget(tx.Message)
	require.NoError(t, err)
	assert.EqualValues(t, 10, budget.ComputeUnitPrice)
	assert.EqualValues(t, 5_000, budget.ComputeUnitLimit)

	tx = solana.NewLegacyTransaction(payer, solana.NewInstruction(program, []byte{1}))
	budget, err = DecompileBudget(tx.Message)
	require.NoError(t, err)
	assert.Equal(t, Budget{}, *budget)

	tx = solana.NewLegacyTransaction(payer, SetComputeUnitPrice(10), SetComputeUnitPrice(20))
	_, err = DecompileBudget(tx.Message)
	assert.True(t, errors.Is(err, ErrDuplicateBudgetTag))

	tx = solana.NewLegacyTransaction(payer, solana.NewInstruction(ProgramKey, []byte{9}))
	_, err = DecompileBudget(tx.Message)
	assert.True(t, errors.Is(err, ErrUnexpectedTag))
}
