package memory

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-starter/pkg/solana"
	compute_budget "github.com/code-payments/solana-starter/pkg/solana/computebudget"
	"github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
	"github.com/code-payments/solana-starter/pkg/solana/system"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	"github.com/code-payments/solana-starter/pkg/testutil"
)

const lamportsPerSol = 1_000_000_000

type testEnv struct {
	ctx    context.Context
	ledger *Ledger
	payer  ed25519.PrivateKey
}

func setup(t *testing.T, opts ...Option) *testEnv {
	env := &testEnv{
		ctx:    context.Background(),
		ledger: New(opts...),
		payer:  testutil.GenerateSolanaKeypair(t),
	}
	env.ledger.Fund(env.payerKey(), lamportsPerSol)
	return env
}

func (e *testEnv) payerKey() ed25519.PublicKey {
	return e.payer.Public().(ed25519.PublicKey)
}

func (e *testEnv) newTransaction(t *testing.T, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (*solana.Transaction, *ledger.Checkpoint) {
	checkpoint, err := e.ledger.GetCheckpoint(e.ctx)
	require.NoError(t, err)

	txn := solana.NewLegacyTransaction(signers[0].Public().(ed25519.PublicKey), ixns...)
	txn.SetBlockhash(checkpoint.Blockhash)
	require.NoError(t, txn.Sign(signers...))
	return &txn, checkpoint
}

func (e *testEnv) submit(t *testing.T, signers []ed25519.PrivateKey, ixns ...solana.Instruction) (solana.Signature, error) {
	txn, checkpoint := e.newTransaction(t, signers, ixns...)
	return e.ledger.SubmitAndConfirm(e.ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
}

func (e *testEnv) balance(t *testing.T, account ed25519.PublicKey) uint64 {
	balance, err := ledger.GetBalance(e.ctx, e.ledger, account)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) count(t *testing.T, address ed25519.PublicKey) uint64 {
	info, err := e.ledger.GetAccountInfo(e.ctx, address)
	require.NoError(t, err)
	assert.EqualValues(t, counter.PROGRAM_ID, info.Owner)

	state := &counter.CounterAccount{Address: address}
	require.NoError(t, state.Unmarshal(info.Data))
	return state.Count
}

func requireCustomError(t *testing.T, err error, index, code int) {
	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error: %v", err)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, index, txErr.InstructionError().Index)
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.EqualValues(t, code, *txErr.InstructionError().CustomError())
}

func requireTransactionError(t *testing.T, err error, key solana.TransactionErrorKey) {
	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error: %v", err)
	assert.Equal(t, key, txErr.ErrorKey())
}

func requireInstructionError(t *testing.T, err error, index int, key solana.InstructionErrorKey) {
	var txErr *solana.TransactionError
	require.True(t, errors.As(err, &txErr), "unexpected error: %v", err)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, index, txErr.InstructionError().Index)
	assert.Equal(t, key, txErr.InstructionError().ErrorKey())
}

func TestGetAccountInfo_NotFound(t *testing.T) {
	env := setup(t)

	_, err := env.ledger.GetAccountInfo(env.ctx, testutil.GenerateSolanaKeys(t, 1)[0])
	assert.Equal(t, ledger.ErrAccountNotFound, err)

	assert.Zero(t, env.balance(t, testutil.GenerateSolanaKeys(t, 1)[0]))
}

func TestTransfer(t *testing.T) {
	env := setup(t)
	dest := testutil.GenerateSolanaKeys(t, 1)[0]

	sig, err := env.submit(t, []ed25519.PrivateKey{env.payer}, system.Transfer(env.payerKey(), dest, 2*lamportsPerSol/10))
	require.NoError(t, err)

	assert.EqualValues(t, lamportsPerSol-2*lamportsPerSol/10-DefaultLamportsPerSignature, env.balance(t, env.payerKey()))
	assert.EqualValues(t, 2*lamportsPerSol/10, env.balance(t, dest))

	result, ok := env.ledger.GetTransactionResult(sig)
	assert.True(t, ok)
	assert.Nil(t, result)

	info, err := env.ledger.GetAccountInfo(env.ctx, dest)
	require.NoError(t, err)
	assert.EqualValues(t, systemProgramKey, info.Owner)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	env := setup(t)
	dest := testutil.GenerateSolanaKeys(t, 1)[0]

	sig, err := env.submit(t, []ed25519.PrivateKey{env.payer}, system.Transfer(env.payerKey(), dest, lamportsPerSol))
	requireCustomError(t, err, 0, systemErrorResultWithNegativeLamports)

	// The fee is still charged
	assert.EqualValues(t, lamportsPerSol-DefaultLamportsPerSignature, env.balance(t, env.payerKey()))
	assert.Zero(t, env.balance(t, dest))

	result, ok := env.ledger.GetTransactionResult(sig)
	assert.True(t, ok)
	assert.NotNil(t, result)
}

func TestSubmit_FeePayerUnfunded(t *testing.T) {
	env := setup(t)
	unfunded := testutil.GenerateSolanaKeypair(t)

	sig, err := env.submit(t, []ed25519.PrivateKey{unfunded}, memo.Instruction("hello"))
	requireTransactionError(t, err, solana.TransactionErrorInsufficientFundsForFee)

	_, ok := env.ledger.GetTransactionResult(sig)
	assert.False(t, ok)
}

func TestSubmit_Signatures(t *testing.T) {
	env := setup(t)

	checkpoint, err := env.ledger.GetCheckpoint(env.ctx)
	require.NoError(t, err)

	txn := solana.NewLegacyTransaction(env.payerKey(), memo.Instruction("unsigned"))
	txn.SetBlockhash(checkpoint.Blockhash)

	_, err = env.ledger.SubmitAndConfirm(env.ctx, &txn, ledger.DefaultSubmitOptions(checkpoint))
	assert.Equal(t, ledger.ErrMissingFeePayerSignature, err)

	// Co-signer never signs
	cosigner := testutil.GenerateSolanaKeypair(t)
	txn = solana.NewLegacyTransaction(env.payerKey(), memo.Instruction("cosigned", cosigner.Public().(ed25519.PublicKey)))
	txn.SetBlockhash(checkpoint.Blockhash)
	require.NoError(t, txn.Sign(env.payer))

	_, err = env.ledger.SubmitAndConfirm(env.ctx, &txn, ledger.DefaultSubmitOptions(checkpoint))
	assert.True(t, errors.Is(err, ledger.ErrMissingSignature))

	// Signature no longer matches the message
	require.NoError(t, txn.Sign(cosigner))
	txn.Message.Instructions[0].Data = []byte("tampered")

	_, err = env.ledger.SubmitAndConfirm(env.ctx, &txn, ledger.DefaultSubmitOptions(checkpoint))
	requireTransactionError(t, err, solana.TransactionErrorSignatureFailure)

	assert.Equal(t, 3, env.ledger.SubmissionCount())
	assert.EqualValues(t, lamportsPerSol, env.balance(t, env.payerKey()))
}

func TestSubmit_Duplicate(t *testing.T) {
	env := setup(t)

	txn, checkpoint := env.newTransaction(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("once"))

	_, err := env.ledger.SubmitAndConfirm(env.ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
	require.NoError(t, err)

	_, err = env.ledger.SubmitAndConfirm(env.ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
	requireTransactionError(t, err, solana.TransactionErrorDuplicateSignature)

	assert.EqualValues(t, lamportsPerSol-DefaultLamportsPerSignature, env.balance(t, env.payerKey()))
}

func TestSubmit_Checkpoints(t *testing.T) {
	env := setup(t, WithCheckpointValidity(2))

	// Unknown blockhash
	txn := solana.NewLegacyTransaction(env.payerKey(), memo.Instruction("unknown"))
	txn.SetBlockhash(solana.Blockhash{1})
	require.NoError(t, txn.Sign(env.payer))

	_, err := env.ledger.SubmitAndConfirm(env.ctx, &txn, ledger.SubmitOptions{})
	requireTransactionError(t, err, solana.TransactionErrorBlockhashNotFound)

	// Expired blockhash
	expiring, checkpoint := env.newTransaction(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("expiring"))
	assert.Equal(t, env.ledger.BlockHeight()+2, checkpoint.LastValidBlockHeight)

	env.ledger.AdvanceBlockHeight(3)

	_, err = env.ledger.SubmitAndConfirm(env.ctx, expiring, ledger.DefaultSubmitOptions(checkpoint))
	assert.True(t, errors.Is(err, ledger.ErrCheckpointExpired))

	// Fresh checkpoint works
	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("fresh"))
	require.NoError(t, err)
}

func TestCounter_Lifecycle(t *testing.T) {
	env := setup(t)
	counterAccount := testutil.GenerateSolanaKeypair(t)
	counterKey := counterAccount.Public().(ed25519.PublicKey)

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer, counterAccount}, counter.NewInitializeInstruction(&counter.InitializeInstructionAccounts{
		Payer:   env.payerKey(),
		Counter: counterKey,
	}))
	require.NoError(t, err)
	assert.Zero(t, env.count(t, counterKey))

	rent := MinimumBalanceForRentExemption(counter.CounterAccountSize)
	assert.EqualValues(t, rent, env.balance(t, counterKey))
	assert.EqualValues(t, lamportsPerSol-rent-2*DefaultLamportsPerSignature, env.balance(t, env.payerKey()))

	adjust := &counter.AdjustInstructionAccounts{Counter: counterKey}
	for i := 0; i < 3; i++ {
		_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, counter.NewIncrementInstruction(adjust))
		require.NoError(t, err)
	}
	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, counter.NewDecrementInstruction(adjust))
	require.NoError(t, err)

	assert.EqualValues(t, 2, env.count(t, counterKey))

	// Re-initializing an existing counter fails
	_, err = env.submit(t, []ed25519.PrivateKey{env.payer, counterAccount}, counter.NewInitializeInstruction(&counter.InitializeInstructionAccounts{
		Payer:   env.payerKey(),
		Counter: counterKey,
	}))
	requireCustomError(t, err, 0, systemErrorAccountAlreadyInUse)
	assert.EqualValues(t, 2, env.count(t, counterKey))
}

func TestCounter_DecrementBelowZero(t *testing.T) {
	env := setup(t)
	counterAccount := testutil.GenerateSolanaKeypair(t)
	counterKey := counterAccount.Public().(ed25519.PublicKey)

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer, counterAccount}, counter.NewInitializeInstruction(&counter.InitializeInstructionAccounts{
		Payer:   env.payerKey(),
		Counter: counterKey,
	}))
	require.NoError(t, err)

	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, counter.NewDecrementInstruction(&counter.AdjustInstructionAccounts{Counter: counterKey}))
	requireCustomError(t, err, 0, counter.ErrorCodeCountUnderflow)
	assert.Zero(t, env.count(t, counterKey))
}

func TestCounter_Uninitialized(t *testing.T) {
	env := setup(t)
	missing := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer}, counter.NewIncrementInstruction(&counter.AdjustInstructionAccounts{Counter: missing}))
	requireCustomError(t, err, 0, anchorErrorAccountNotInitialized)

	// Owned by the system program, not the counter program
	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, counter.NewIncrementInstruction(&counter.AdjustInstructionAccounts{Counter: env.payerKey()}))
	requireCustomError(t, err, 0, anchorErrorAccountOwnedByWrongProgram)
}

func TestSubmit_Atomic(t *testing.T) {
	env := setup(t)
	dest := testutil.GenerateSolanaKeys(t, 1)[0]
	counterAccount := testutil.GenerateSolanaKeypair(t)
	counterKey := counterAccount.Public().(ed25519.PublicKey)

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer, counterAccount}, counter.NewInitializeInstruction(&counter.InitializeInstructionAccounts{
		Payer:   env.payerKey(),
		Counter: counterKey,
	}))
	require.NoError(t, err)

	before := env.balance(t, env.payerKey())

	// The transfer and increment succeed, but the final decrement below zero
	// unwinds everything
	_, err = env.submit(
		t,
		[]ed25519.PrivateKey{env.payer},
		system.Transfer(env.payerKey(), dest, 1000),
		counter.NewIncrementInstruction(&counter.AdjustInstructionAccounts{Counter: counterKey}),
		counter.NewDecrementInstruction(&counter.AdjustInstructionAccounts{Counter: counterKey}),
		counter.NewDecrementInstruction(&counter.AdjustInstructionAccounts{Counter: counterKey}),
	)
	requireCustomError(t, err, 3, counter.ErrorCodeCountUnderflow)

	assert.EqualValues(t, before-DefaultLamportsPerSignature, env.balance(t, env.payerKey()))
	assert.Zero(t, env.balance(t, dest))
	assert.Zero(t, env.count(t, counterKey))
}

func TestCreateAccount(t *testing.T) {
	env := setup(t)
	newAccount := testutil.GenerateSolanaKeypair(t)
	newKey := newAccount.Public().(ed25519.PublicKey)
	owner := testutil.GenerateSolanaKeys(t, 1)[0]

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer, newAccount}, system.CreateAccount(env.payerKey(), newKey, owner, 10_000, 32))
	require.NoError(t, err)

	info, err := env.ledger.GetAccountInfo(env.ctx, newKey)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000, info.Lamports)
	assert.EqualValues(t, owner, info.Owner)
	assert.Len(t, info.Data, 32)

	_, err = env.submit(t, []ed25519.PrivateKey{env.payer, newAccount}, system.CreateAccount(env.payerKey(), newKey, owner, 10_000, 32))
	requireCustomError(t, err, 0, systemErrorAccountAlreadyInUse)
}

func TestMemo(t *testing.T) {
	env := setup(t)

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("gm", env.payerKey()))
	require.NoError(t, err)

	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, memo.Instruction(strings.Repeat("a", memo.MaxLength+1)))
	requireInstructionError(t, err, 0, solana.InstructionErrorInvalidInstructionData)

	_, err = env.submit(t, []ed25519.PrivateKey{env.payer}, memo.Instruction(string([]byte{0xff, 0xfe})))
	requireInstructionError(t, err, 0, solana.InstructionErrorInvalidInstructionData)
}

func TestComputeBudget(t *testing.T) {
	env := setup(t)

	_, err := env.submit(
		t,
		[]ed25519.PrivateKey{env.payer},
		compute_budget.SetComputeUnitLimit(200_000),
		compute_budget.SetComputeUnitPrice(1_000_000),
		memo.Instruction("priority"),
	)
	require.NoError(t, err)
	assert.EqualValues(t, lamportsPerSol-DefaultLamportsPerSignature-200_000, env.balance(t, env.payerKey()))

	// Without an explicit limit, each instruction is budgeted the default
	_, err = env.submit(
		t,
		[]ed25519.PrivateKey{env.payer},
		compute_budget.SetComputeUnitPrice(10),
		memo.Instruction("one"),
		memo.Instruction("two"),
	)
	require.NoError(t, err)
	assert.EqualValues(t, lamportsPerSol-2*DefaultLamportsPerSignature-200_000-4, env.balance(t, env.payerKey()))

	_, err = env.submit(
		t,
		[]ed25519.PrivateKey{env.payer},
		compute_budget.SetComputeUnitPrice(1),
		compute_budget.SetComputeUnitPrice(2),
	)
	requireInstructionError(t, err, 0, solana.InstructionErrorInvalidInstructionData)
}

func TestUnknownProgram(t *testing.T) {
	env := setup(t)

	_, err := env.submit(t, []ed25519.PrivateKey{env.payer}, solana.NewInstruction(testutil.GenerateSolanaKeys(t, 1)[0], []byte{1}))
	requireTransactionError(t, err, solana.TransactionErrorProgramAccountNotFound)
}

func TestRequestAirdrop(t *testing.T) {
	env := setup(t)
	account := testutil.GenerateSolanaKeys(t, 1)[0]

	sig1, err := env.ledger.RequestAirdrop(env.ctx, account, lamportsPerSol)
	require.NoError(t, err)
	sig2, err := env.ledger.RequestAirdrop(env.ctx, account, lamportsPerSol)
	require.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
	assert.EqualValues(t, 2*lamportsPerSol, env.balance(t, account))
}

func TestInducedErrors(t *testing.T) {
	env := setup(t)
	txn, checkpoint := env.newTransaction(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("induced"))

	env.ledger.InduceErrors()

	_, err := env.ledger.GetCheckpoint(env.ctx)
	assert.Equal(t, ErrInduced, err)
	_, err = env.ledger.GetAccountInfo(env.ctx, env.payerKey())
	assert.Equal(t, ErrInduced, err)
	_, err = env.ledger.SubmitAndConfirm(env.ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
	assert.Equal(t, ErrInduced, err)
	_, err = env.ledger.RequestAirdrop(env.ctx, env.payerKey(), 1)
	assert.Equal(t, ErrInduced, err)

	env.ledger.StopInducingErrors()

	_, err = env.ledger.SubmitAndConfirm(env.ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
	require.NoError(t, err)
}

func TestSubmit_ContextDone(t *testing.T) {
	env := setup(t)
	txn, checkpoint := env.newTransaction(t, []ed25519.PrivateKey{env.payer}, memo.Instruction("cancelled"))

	ctx, cancel := context.WithCancel(env.ctx)
	cancel()

	_, err := env.ledger.SubmitAndConfirm(ctx, txn, ledger.DefaultSubmitOptions(checkpoint))
	assert.Equal(t, context.Canceled, err)
	assert.Zero(t, env.ledger.SubmissionCount())
}
