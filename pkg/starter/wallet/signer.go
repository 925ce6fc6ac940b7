package wallet

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/starter/common"
)

var (
	// ErrUserRejected indicates the user declined to approve a transaction.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrNotRequiredSigner indicates a signer was asked to sign a transaction
	// that doesn't require its signature.
	ErrNotRequiredSigner = errors.New("not a required signer")
)

// Signer adds its signature to transactions that require it.
type Signer interface {
	PublicKey() ed25519.PublicKey
	Sign(txn *solana.Transaction) error
}

// EphemeralSigner is a freshly generated keypair that lives only as long as
// the operation that created it. It's used for accounts that must co-sign
// their own creation.
type EphemeralSigner struct {
	account *common.Account
}

func NewEphemeralSigner() (*EphemeralSigner, error) {
	account, err := common.NewRandomAccount()
	if err != nil {
		return nil, errors.Wrap(err, "error generating ephemeral account")
	}
	return &EphemeralSigner{account: account}, nil
}

func (s *EphemeralSigner) PublicKey() ed25519.PublicKey {
	return s.account.PublicKey().ToBytes()
}

// Sign signs synchronously. It can't be rejected.
func (s *EphemeralSigner) Sign(txn *solana.Transaction) error {
	return signWith(txn, s.account)
}

func signWith(txn *solana.Transaction, account *common.Account) error {
	pub := ed25519.PublicKey(account.PublicKey().ToBytes())
	if !txn.IsSigner(pub) {
		return errors.Wrapf(ErrNotRequiredSigner, "account %s", base58.Encode(pub))
	}

	return txn.Sign(account.PrivateKey().ToBytes())
}
