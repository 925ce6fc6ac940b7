package system

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/solana"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", base58.Encode(ProgramKey[:]))
}

func TestCreateAccount_Layout(t *testing.T) {
	keys := generateKeys(t, 3)
	funder, address, owner := keys[0], keys[1], keys[2]

	ixn := CreateAccount(funder, address, owner, 0x0102, 0x0304)

	expected := []byte{
		0, 0, 0, 0,
		0x02, 0x01, 0, 0, 0, 0, 0, 0,
		0x04, 0x03, 0, 0, 0, 0, 0, 0,
	}
	expected = append(expected, owner...)
	assert.Equal(t, expected, ixn.Data)

	require.Len(t, ixn.Accounts, 2)
	for i, key := range []ed25519.PublicKey{funder, address} {
		assert.EqualValues(t, key, ixn.Accounts[i].PublicKey)
		assert.True(t, ixn.Accounts[i].IsSigner)
		assert.True(t, ixn.Accounts[i].IsWritable)
	}
}

func TestCreateAccount_Decompile(t *testing.T) {
	keys := generateKeys(t, 3)

	txn := solana.NewLegacyTransaction(keys[0], CreateAccount(keys[0], keys[1], keys[2], 12345, 67890))

	// Decompile from the wire form so account indexes are exercised
	var decoded solana.Transaction
	require.NoError(t, decoded.Unmarshal(txn.Marshal()))

	actual, err := DecompileCreateAccount(decoded.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, &DecompiledCreateAccount{
		Funder:   keys[0],
		Address:  keys[1],
		Lamports: 12345,
		Size:     67890,
		Owner:    keys[2],
	}, actual)

	_, err = DecompileTransfer(decoded.Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 2)

	ixn := Transfer(keys[0], keys[1], 2_000_000_000)
	assert.Equal(t, []byte{2, 0, 0, 0, 0x00, 0x94, 0x35, 0x77, 0, 0, 0, 0}, ixn.Data)
	assert.EqualValues(t, ProgramKey[:], ixn.Program)

	require.Len(t, ixn.Accounts, 2)
	assert.True(t, ixn.Accounts[0].IsSigner)
	assert.True(t, ixn.Accounts[0].IsWritable)
	assert.False(t, ixn.Accounts[1].IsSigner)
	assert.True(t, ixn.Accounts[1].IsWritable)

	txn := solana.NewLegacyTransaction(keys[0], ixn)
	assert.True(t, IsProgram(txn.Message, 0))
	assert.False(t, IsProgram(txn.Message, 1))

	actual, err := DecompileTransfer(txn.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, &DecompiledTransfer{From: keys[0], To: keys[1], Lamports: 2_000_000_000}, actual)

	_, err = DecompileCreateAccount(txn.Message, 0)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
}

func TestDecompile_Malformed(t *testing.T) {
	keys := generateKeys(t, 4)

	for _, tc := range []struct {
		name     string
		mutate   func(*solana.Instruction)
		index    int
		expected error
	}{
		{
			name:     "other program",
			mutate:   func(ixn *solana.Instruction) { ixn.Program = keys[3] },
			expected: solana.ErrIncorrectProgram,
		},
		{
			name:     "short data",
			mutate:   func(ixn *solana.Instruction) { ixn.Data = ixn.Data[:3] },
			expected: solana.ErrIncorrectInstruction,
		},
		{
			name:   "missing account",
			mutate: func(ixn *solana.Instruction) { ixn.Accounts = ixn.Accounts[:1] },
		},
		{
			name:   "trailing data",
			mutate: func(ixn *solana.Instruction) { ixn.Data = append(ixn.Data, 0) },
		},
		{
			name:   "missing instruction",
			mutate: func(*solana.Instruction) {},
			index:  1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ixn := CreateAccount(keys[0], keys[1], keys[2], 1, 1)
			tc.mutate(&ixn)

			_, err := DecompileCreateAccount(solana.NewLegacyTransaction(keys[0], ixn).Message, tc.index)
			require.Error(t, err)
			if tc.expected != nil {
				assert.Equal(t, tc.expected, err)
			}
		})
	}
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)
	for i := range keys {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}
	return keys
}
