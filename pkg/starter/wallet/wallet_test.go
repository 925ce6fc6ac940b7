package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
	"github.com/code-payments/solana-starter/pkg/solana/system"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	memory_ledger "github.com/code-payments/solana-starter/pkg/starter/ledger/memory"
	"github.com/code-payments/solana-starter/pkg/starter/transaction"
	"github.com/code-payments/solana-starter/pkg/testutil"
)

type testEnv struct {
	ctx     context.Context
	ledger  *memory_ledger.Ledger
	account *common.Account
	builder *transaction.Builder
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		ctx:     context.Background(),
		ledger:  memory_ledger.New(),
		account: testutil.NewRandomAccount(t),
		builder: transaction.NewBuilder(),
	}
	env.ledger.Fund(env.account.PublicKey().ToBytes(), 1_000_000_000)
	return env
}

func (e *testEnv) envelope(t *testing.T, ixns ...solana.Instruction) (*transaction.Envelope, *ledger.Checkpoint) {
	checkpoint, err := e.ledger.GetCheckpoint(e.ctx)
	require.NoError(t, err)

	env, err := e.builder.Build(e.account.PublicKey().ToBytes(), checkpoint)
	require.NoError(t, err)

	for _, ixn := range ixns {
		env, err = e.builder.AddInstruction(env, ixn)
		require.NoError(t, err)
	}
	return env, checkpoint
}

func TestEphemeralSigner(t *testing.T) {
	signer, err := NewEphemeralSigner()
	require.NoError(t, err)

	other, err := NewEphemeralSigner()
	require.NoError(t, err)
	assert.NotEqual(t, signer.PublicKey(), other.PublicKey())

	payer := testutil.GenerateSolanaKeys(t, 1)[0]
	txn := solana.NewLegacyTransaction(payer, memo.Instruction("ephemeral", signer.PublicKey()))

	require.NoError(t, signer.Sign(&txn))
	assert.NotEqual(t, solana.Signature{}, txn.Signatures[1])

	err = other.Sign(&txn)
	assert.True(t, errors.Is(err, ErrNotRequiredSigner))
}

func TestKeypairAdapter_SignAndSubmit(t *testing.T) {
	env := setup(t)
	dest := testutil.GenerateSolanaKeys(t, 1)[0]

	adapter, err := NewKeypairAdapter(env.account)
	require.NoError(t, err)

	pub, ok := adapter.PublicKey()
	require.True(t, ok)
	assert.EqualValues(t, env.account.PublicKey().ToBytes(), pub)

	envelope, checkpoint := env.envelope(t, system.Transfer(pub, dest, 1234))
	sig, err := adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint))
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)
	assert.True(t, envelope.IsSealed())

	result, landed := env.ledger.GetTransactionResult(sig)
	assert.True(t, landed)
	assert.Nil(t, result)

	balance, err := ledger.GetBalance(env.ctx, env.ledger, dest)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, balance)
}

func TestKeypairAdapter_DualSigner(t *testing.T) {
	env := setup(t)

	adapter, err := NewKeypairAdapter(env.account)
	require.NoError(t, err)

	ephemeral, err := NewEphemeralSigner()
	require.NoError(t, err)

	pub, _ := adapter.PublicKey()
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	// The wallet is asked for approval only after the co-signer has signed
	var approved bool
	adapter.approver = ApproverFunc(func(_ context.Context, txn *solana.Transaction) error {
		approved = true
		assert.Equal(t, solana.Signature{}, txn.Signatures[0])
		assert.NotEqual(t, solana.Signature{}, txn.Signatures[1])
		return nil
	})

	envelope, checkpoint := env.envelope(t, system.CreateAccount(pub, ephemeral.PublicKey(), owner, 10_000, 8))
	_, err = adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint), ephemeral)
	require.NoError(t, err)
	assert.True(t, approved)

	info, err := env.ledger.GetAccountInfo(env.ctx, ephemeral.PublicKey())
	require.NoError(t, err)
	assert.EqualValues(t, owner, info.Owner)
}

func TestKeypairAdapter_MissingCosigner(t *testing.T) {
	env := setup(t)

	adapter, err := NewKeypairAdapter(env.account)
	require.NoError(t, err)

	pub, _ := adapter.PublicKey()
	newAccount := testutil.GenerateSolanaKeys(t, 1)[0]

	envelope, checkpoint := env.envelope(t, system.CreateAccount(pub, newAccount, pub, 10_000, 8))
	sig, err := adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint))
	assert.True(t, errors.Is(err, ledger.ErrMissingSignature))
	assert.NotEqual(t, solana.Signature{}, sig)
}

func TestKeypairAdapter_UserRejected(t *testing.T) {
	env := setup(t)

	adapter, err := NewKeypairAdapter(env.account, WithApprover(RejectAll))
	require.NoError(t, err)

	envelope, checkpoint := env.envelope(t, memo.Instruction("declined"))
	sig, err := adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint))
	assert.Equal(t, ErrUserRejected, err)
	assert.Equal(t, solana.Signature{}, sig)
	assert.Zero(t, env.ledger.SubmissionCount())
}

func TestKeypairAdapter_FeePayerMismatch(t *testing.T) {
	env := setup(t)

	adapter, err := NewKeypairAdapter(testutil.NewRandomAccount(t))
	require.NoError(t, err)

	envelope, checkpoint := env.envelope(t, memo.Instruction("mismatch"))
	_, err = adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint))
	assert.Error(t, err)
	assert.False(t, envelope.IsSealed())
	assert.Zero(t, env.ledger.SubmissionCount())
}

func TestKeypairAdapter_Disconnected(t *testing.T) {
	env := setup(t)

	adapter, err := NewKeypairAdapter(env.account)
	require.NoError(t, err)

	adapter.Disconnect()

	_, ok := adapter.PublicKey()
	assert.False(t, ok)

	envelope, checkpoint := env.envelope(t, memo.Instruction("disconnected"))
	_, err = adapter.SignAndSubmit(env.ctx, envelope, env.ledger, ledger.DefaultSubmitOptions(checkpoint))
	assert.Equal(t, starter.ErrNotConnected, err)
}

func TestKeypairAdapter_PublicKeyOnly(t *testing.T) {
	account, err := common.NewAccountFromPublicKeyBytes(testutil.GenerateSolanaKeys(t, 1)[0])
	require.NoError(t, err)

	_, err = NewKeypairAdapter(account)
	assert.Error(t, err)
}

func TestConnection(t *testing.T) {
	defer Disconnect()

	first, err := NewKeypairAdapter(testutil.NewRandomAccount(t))
	require.NoError(t, err)
	second, err := NewKeypairAdapter(testutil.NewRandomAccount(t))
	require.NoError(t, err)

	assert.Nil(t, Active())

	Connect(first)
	assert.Equal(t, first, Active())

	// Reconnecting the same adapter leaves it connected
	Connect(first)
	_, ok := first.PublicKey()
	assert.True(t, ok)

	Connect(second)
	assert.Equal(t, second, Active())
	_, ok = first.PublicKey()
	assert.False(t, ok)

	Disconnect()
	assert.Nil(t, Active())
	_, ok = second.PublicKey()
	assert.False(t, ok)
}

func TestKeypair_RoundTrip(t *testing.T) {
	account := testutil.NewRandomAccount(t)

	data, err := MarshalKeypair(account)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	loaded, err := LoadKeypairFile(path)
	require.NoError(t, err)
	assert.True(t, account.PublicKey().Equal(loaded.PublicKey()))
	assert.True(t, account.PrivateKey().Equal(loaded.PrivateKey()))

	_, err = LoadKeypairFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestKeypair_Invalid(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`[1, 2, 3]`,
		`{"key": 1}`,
	} {
		_, err := ParseKeypair([]byte(data))
		assert.True(t, errors.Is(err, ErrInvalidKeypair), data)
	}

	// Public half doesn't belong to the seed
	account := testutil.NewRandomAccount(t)
	other := testutil.NewRandomAccount(t)

	raw := make([]int, 0, ed25519.PrivateKeySize)
	for _, b := range account.PrivateKey().ToBytes()[:ed25519.SeedSize] {
		raw = append(raw, int(b))
	}
	for _, b := range other.PublicKey().ToBytes() {
		raw = append(raw, int(b))
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = ParseKeypair(data)
	assert.True(t, errors.Is(err, ErrInvalidKeypair))

	// Out of range byte values
	raw[0] = 256
	data, err = json.Marshal(raw)
	require.NoError(t, err)

	_, err = ParseKeypair(data)
	assert.True(t, errors.Is(err, ErrInvalidKeypair))
}

func TestAccountFromMnemonic(t *testing.T) {
	mnemonic := "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	seed, err := hex.DecodeString("5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc1")
	require.NoError(t, err)

	expected, err := common.NewAccountFromSeed(seed)
	require.NoError(t, err)

	actual, err := AccountFromMnemonic(mnemonic, "")
	require.NoError(t, err)
	assert.True(t, expected.PublicKey().Equal(actual.PublicKey()))

	withPassphrase, err := AccountFromMnemonic(mnemonic, "TREZOR")
	require.NoError(t, err)
	assert.False(t, expected.PublicKey().Equal(withPassphrase.PublicKey()))

	_, err = AccountFromMnemonic("abandon abandon abandon", "")
	assert.True(t, errors.Is(err, ErrInvalidMnemonic))

	generated, err := NewMnemonic()
	require.NoError(t, err)
	_, err = AccountFromMnemonic(generated, "")
	require.NoError(t, err)
}
