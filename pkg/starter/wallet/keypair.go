package wallet

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"github.com/code-payments/solana-starter/pkg/starter/common"
)

var (
	ErrInvalidKeypair  = errors.New("invalid keypair")
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// LoadKeypairFile reads a keypair in the Solana CLI format: a JSON array of
// the 64 private key bytes.
func LoadKeypairFile(path string) (*common.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading keypair file")
	}
	return ParseKeypair(data)
}

// ParseKeypair parses a Solana CLI keypair.
func ParseKeypair(data []byte) (*common.Account, error) {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrInvalidKeypair, err.Error())
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(ErrInvalidKeypair, "expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	privateKey := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, errors.Wrapf(ErrInvalidKeypair, "byte %d out of range", i)
		}
		privateKey[i] = byte(v)
	}

	// The trailing half must be the public key derived from the seed
	account, err := common.NewAccountFromSeed(privateKey[:ed25519.SeedSize])
	if err != nil {
		return nil, errors.Wrap(ErrInvalidKeypair, err.Error())
	}
	if !bytes.Equal(account.PublicKey().ToBytes(), privateKey[ed25519.SeedSize:]) {
		return nil, errors.Wrap(ErrInvalidKeypair, "public key doesn't match private key")
	}
	return account, nil
}

// MarshalKeypair encodes an account in the Solana CLI keypair format.
func MarshalKeypair(account *common.Account) ([]byte, error) {
	if account.PrivateKey() == nil {
		return nil, errors.New("account has no private key")
	}

	privateKey := account.PrivateKey().ToBytes()
	raw := make([]int, len(privateKey))
	for i, b := range privateKey {
		raw[i] = int(b)
	}
	return json.Marshal(raw)
}

// AccountFromMnemonic derives the account `solana-keygen recover` produces
// for a BIP-39 mnemonic without a derivation path: the first 32 bytes of the
// BIP-39 seed are used as the ed25519 seed.
func AccountFromMnemonic(mnemonic, passphrase string) (*common.Account, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidMnemonic, err.Error())
	}
	return common.NewAccountFromSeed(seed[:ed25519.SeedSize])
}

// NewMnemonic generates a fresh 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
