package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/starter/common"
)

// GenerateSolanaKeypair returns a fresh private key
func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

// GenerateSolanaKeys returns n fresh public keys with no known private key
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, 0, n)
	for len(keys) < n {
		keys = append(keys, GenerateSolanaKeypair(t).Public().(ed25519.PublicKey))
	}
	return keys
}

func NewRandomAccount(t *testing.T) *common.Account {
	account, err := common.NewAccountFromPrivateKeyBytes(GenerateSolanaKeypair(t))
	require.NoError(t, err)
	return account
}
