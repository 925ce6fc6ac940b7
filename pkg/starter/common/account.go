package common

import (
	"bytes"
	"crypto/ed25519"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"
)

// Account is an on-ledger identity. The private key is only present for
// accounts this process can sign for, such as the wallet or an ephemeral
// counter account.
type Account struct {
	publicKey  *Key
	privateKey *Key
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	account := &Account{publicKey: key}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("private key must be %d bytes", ed25519.PrivateKeySize)
	}

	private, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}
	public, err := NewKeyFromBytes(ed25519.PrivateKey(privateKey).Public().(ed25519.PublicKey))
	if err != nil {
		return nil, errors.Wrap(err, "error deriving public key")
	}

	account := &Account{publicKey: public, privateKey: private}
	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

// NewAccountFromSeed derives an account from a 32 byte ed25519 seed
func NewAccountFromSeed(seed []byte) (*Account, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	return NewAccountFromPrivateKeyBytes(ed25519.NewKeyFromSeed(seed))
}

func NewRandomAccount() (*Account, error) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating private key")
	}
	return NewAccountFromPrivateKeyBytes(privateKey)
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

// PrivateKey is nil for watch only accounts
func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) ([]byte, error) {
	if a.privateKey == nil {
		return nil, errors.New("private key not available")
	}
	return ed25519.Sign(a.privateKey.ToBytes(), message), nil
}

// IsOnCurve reports whether the public key is a valid ed25519 point. Program
// derived addresses are off curve and have no private key.
func (a *Account) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a.publicKey.ToBytes())
	return err == nil
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "invalid public key")
	}
	if !a.publicKey.IsPublic() {
		return errors.New("public key isn't public")
	}

	if a.privateKey == nil {
		return nil
	}

	if err := a.privateKey.Validate(); err != nil {
		return errors.Wrap(err, "invalid private key")
	}
	if a.privateKey.IsPublic() {
		return errors.New("private key isn't private")
	}

	derived := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, a.publicKey.ToBytes()) {
		return errors.New("private key doesn't map to public key")
	}
	return nil
}

func (a *Account) String() string {
	return a.publicKey.ToBase58()
}
