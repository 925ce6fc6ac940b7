package transfer

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
	"github.com/code-payments/solana-starter/pkg/solana/system"
	"github.com/code-payments/solana-starter/pkg/starter"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	memory_ledger "github.com/code-payments/solana-starter/pkg/starter/ledger/memory"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
	"github.com/code-payments/solana-starter/pkg/testutil"
)

type countingLedger struct {
	*memory_ledger.Ledger

	mu    sync.Mutex
	reads int
}

func (l *countingLedger) GetAccountInfo(ctx context.Context, account ed25519.PublicKey) (*solana.AccountInfo, error) {
	l.mu.Lock()
	l.reads++
	l.mu.Unlock()

	return l.Ledger.GetAccountInfo(ctx, account)
}

func (l *countingLedger) readCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

type testEnv struct {
	ctx       context.Context
	ledger    *countingLedger
	sender    *common.Account
	recipient ed25519.PublicKey
	wallet    *wallet.KeypairAdapter
	session   *Session
}

func setup(t *testing.T, balance string, approver wallet.Approver, overrides *testOverrides) *testEnv {
	if approver == nil {
		approver = wallet.AutoApprove
	}
	if overrides == nil {
		overrides = &testOverrides{submitTimeout: time.Minute}
	}

	l := &countingLedger{Ledger: memory_ledger.New()}
	sender := testutil.NewRandomAccount(t)
	if len(balance) > 0 {
		l.Fund(sender.PublicKey().ToBytes(), sol.MustStrToLamports(balance))
	}

	adapter, err := wallet.NewKeypairAdapter(sender, wallet.WithApprover(approver))
	require.NoError(t, err)

	return &testEnv{
		ctx:       context.Background(),
		ledger:    l,
		sender:    sender,
		recipient: testutil.GenerateSolanaKeys(t, 1)[0],
		wallet:    adapter,
		session:   NewSession(l, adapter, nil, withManualTestOverrides(overrides)),
	}
}

func (e *testEnv) ledgerBalance(t *testing.T, account ed25519.PublicKey) uint64 {
	balance, err := ledger.GetBalance(e.ctx, e.ledger.Ledger, account)
	require.NoError(t, err)
	return balance
}

func assertMirror(t *testing.T, session *Session, expected string) {
	balance, ok := session.Balance()
	require.True(t, ok)
	assert.Equal(t, sol.MustStrToLamports(expected), balance)
}

func TestTransfer_ExceedsMirror(t *testing.T) {
	env := setup(t, "3", nil, nil)

	balance, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, sol.MustStrToLamports("3"), balance)

	sig, err := env.session.Transfer(env.ctx, env.recipient, "5")
	assert.True(t, errors.Is(err, starter.ErrInsufficientFunds))
	assert.Equal(t, solana.Signature{}, sig)

	assertMirror(t, env.session, "3")
	assert.Zero(t, env.ledger.SubmissionCount())
	assert.Equal(t, solana.Signature{}, env.session.LastSignature())
}

func TestTransfer_OptimisticDecrement(t *testing.T) {
	env := setup(t, "10", nil, nil)

	_, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)
	reads := env.ledger.readCount()

	sig, err := env.session.Transfer(env.ctx, env.recipient, "2")
	require.NoError(t, err)
	assert.Equal(t, sig, env.session.LastSignature())

	assertMirror(t, env.session, "8")
	assert.Equal(t, reads, env.ledger.readCount())

	txErr, ok := env.ledger.GetTransactionResult(sig)
	require.True(t, ok)
	assert.Nil(t, txErr)

	// The mirror doesn't account for fees until it's reloaded
	assert.Equal(t, sol.MustStrToLamports("2"), env.ledgerBalance(t, env.recipient))
	assert.Equal(t, sol.MustStrToLamports("8")-memory_ledger.DefaultLamportsPerSignature, env.ledgerBalance(t, env.sender.PublicKey().ToBytes()))

	balance, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, sol.MustStrToLamports("8")-memory_ledger.DefaultLamportsPerSignature, balance)
}

func TestTransfer_LoadsMirrorOnFirstUse(t *testing.T) {
	env := setup(t, "1", nil, nil)

	_, ok := env.session.Balance()
	assert.False(t, ok)

	_, err := env.session.Transfer(env.ctx, env.recipient, "0.25")
	require.NoError(t, err)
	assert.Equal(t, 1, env.ledger.readCount())

	assertMirror(t, env.session, "0.75")
}

func TestTransfer_UnfundedWallet(t *testing.T) {
	env := setup(t, "", nil, nil)

	balance, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = env.session.Transfer(env.ctx, env.recipient, "0.000000001")
	assert.True(t, errors.Is(err, starter.ErrInsufficientFunds))
	assert.Zero(t, env.ledger.SubmissionCount())
}

func TestTransfer_NotConnected(t *testing.T) {
	env := setup(t, "10", nil, nil)
	env.wallet.Disconnect()

	_, err := env.session.LoadBalance(env.ctx)
	assert.Equal(t, starter.ErrNotConnected, err)

	_, err = env.session.Transfer(env.ctx, env.recipient, "1")
	assert.Equal(t, starter.ErrNotConnected, err)

	_, ok := env.session.Balance()
	assert.False(t, ok)
	assert.Zero(t, env.ledger.SubmissionCount())
}

func TestTransfer_InvalidAmount(t *testing.T) {
	env := setup(t, "10", nil, nil)

	for _, amount := range []string{
		"",
		"abc",
		"-1",
		"0",
		"0.0",
		"1.",
		"0.0000000001",
		"1.2.3",
	} {
		_, err := env.session.Transfer(env.ctx, env.recipient, amount)
		assert.True(t, errors.Is(err, starter.ErrInvalidAmount), amount)
	}

	assert.Zero(t, env.ledger.SubmissionCount())
	assert.Zero(t, env.ledger.readCount())
}

func TestTransfer_InvalidRecipient(t *testing.T) {
	env := setup(t, "10", nil, nil)

	_, err := env.session.Transfer(env.ctx, env.recipient[:31], "1")
	assert.Equal(t, ErrInvalidRecipient, err)

	_, err = env.session.Transfer(env.ctx, nil, "1")
	assert.Equal(t, ErrInvalidRecipient, err)
}

func TestTransfer_LedgerRejects(t *testing.T) {
	env := setup(t, "10", nil, nil)

	_, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)

	// The wallet is drained elsewhere, so the mirror is stale
	env.ledger.SetAccount(env.sender.PublicKey().ToBytes(), &solana.AccountInfo{
		Lamports: sol.MustStrToLamports("1"),
		Owner:    make(ed25519.PublicKey, ed25519.PublicKeySize),
	})

	sig, err := env.session.Transfer(env.ctx, env.recipient, "2")
	require.Error(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)

	var submissionErr *starter.SubmissionError
	require.True(t, errors.As(err, &submissionErr))
	assert.Equal(t, sig, submissionErr.Signature)

	txErr := submissionErr.TransactionError()
	require.NotNil(t, txErr)
	require.NotNil(t, txErr.InstructionError())
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.EqualValues(t, 1, *txErr.InstructionError().CustomError())

	assertMirror(t, env.session, "10")
	assert.Equal(t, solana.Signature{}, env.session.LastSignature())
	assert.Zero(t, env.ledgerBalance(t, env.recipient))
}

func TestTransfer_UserRejected(t *testing.T) {
	env := setup(t, "10", wallet.RejectAll, nil)

	_, err := env.session.Transfer(env.ctx, env.recipient, "2")
	assert.True(t, errors.Is(err, starter.ErrSubmission))
	assert.True(t, errors.Is(err, wallet.ErrUserRejected))

	assertMirror(t, env.session, "10")
	assert.Zero(t, env.ledger.SubmissionCount())
}

func TestTransfer_Memo(t *testing.T) {
	var observed []solana.Transaction
	approver := wallet.ApproverFunc(func(ctx context.Context, txn *solana.Transaction) error {
		observed = append(observed, *txn)
		return nil
	})

	env := setup(t, "10", approver, &testOverrides{submitTimeout: time.Minute, memo: "starter"})

	_, err := env.session.Transfer(env.ctx, env.recipient, "1")
	require.NoError(t, err)

	require.Len(t, observed, 1)
	m := observed[0].Message
	require.Len(t, m.Instructions, 2)

	transfer, err := system.DecompileTransfer(m, 0)
	require.NoError(t, err)
	assert.EqualValues(t, env.recipient, transfer.To)
	assert.Equal(t, sol.MustStrToLamports("1"), transfer.Lamports)

	decompiled, err := memo.DecompileMemo(m, 1)
	require.NoError(t, err)
	assert.Equal(t, "starter", string(decompiled.Data))
	assert.True(t, bytes.Equal(memo.ProgramKey, m.Accounts[m.Instructions[1].ProgramIndex]))
}

func TestTransfer_Busy(t *testing.T) {
	var block atomic.Bool
	entered := make(chan struct{})
	release := make(chan struct{})

	approver := wallet.ApproverFunc(func(ctx context.Context, txn *solana.Transaction) error {
		if block.Load() {
			entered <- struct{}{}
			<-release
		}
		return nil
	})

	env := setup(t, "10", approver, nil)

	_, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)

	block.Store(true)

	result := make(chan error, 1)
	go func() {
		_, err := env.session.Transfer(env.ctx, env.recipient, "1")
		result <- err
	}()

	<-entered

	_, err = env.session.Transfer(env.ctx, env.recipient, "1")
	assert.Equal(t, starter.ErrBusy, err)

	_, err = env.session.LoadBalance(env.ctx)
	assert.Equal(t, starter.ErrBusy, err)

	block.Store(false)
	close(release)
	require.NoError(t, <-result)

	assertMirror(t, env.session, "9")
	assert.Equal(t, 1, env.ledger.SubmissionCount())
}

func TestTransfer_Timeout(t *testing.T) {
	approver := wallet.ApproverFunc(func(ctx context.Context, txn *solana.Transaction) error {
		<-ctx.Done()
		return ctx.Err()
	})

	env := setup(t, "10", approver, &testOverrides{submitTimeout: 50 * time.Millisecond})

	_, err := env.session.Transfer(env.ctx, env.recipient, "1")
	assert.True(t, errors.Is(err, starter.ErrSubmission))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	assertMirror(t, env.session, "10")
}

func TestTransfer_MirrorPerWallet(t *testing.T) {
	env := setup(t, "10", nil, nil)

	_, err := env.session.LoadBalance(env.ctx)
	require.NoError(t, err)

	other := testutil.NewRandomAccount(t)
	env.ledger.Fund(other.PublicKey().ToBytes(), sol.MustStrToLamports("4"))

	adapter, err := wallet.NewKeypairAdapter(other)
	require.NoError(t, err)

	session := NewSession(env.ledger, adapter, nil, withManualTestOverrides(&testOverrides{submitTimeout: time.Minute}))
	_, ok := session.Balance()
	assert.False(t, ok)

	_, err = session.Transfer(env.ctx, env.recipient, "5")
	assert.True(t, errors.Is(err, starter.ErrInsufficientFunds))
	assertMirror(t, session, "4")
}
