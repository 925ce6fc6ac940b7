package memory

import (
	"bytes"
	"crypto/ed25519"
	"math"

	"github.com/code-payments/solana-starter/pkg/solana"
	compute_budget "github.com/code-payments/solana-starter/pkg/solana/computebudget"
	"github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
	"github.com/code-payments/solana-starter/pkg/solana/system"
)

const (
	defaultComputeUnitsPerInstruction = 200_000
	maxComputeUnits                   = 1_400_000
	microLamportsPerLamport           = 1_000_000

	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// System program custom errors
const (
	systemErrorAccountAlreadyInUse        = 0
	systemErrorResultWithNegativeLamports = 1
)

// Anchor framework errors surfaced by the counter program
const (
	anchorErrorAccountDidNotDeserialize   = 3003
	anchorErrorAccountOwnedByWrongProgram = 3007
	anchorErrorAccountNotInitialized      = 3012
)

var systemProgramKey = make(ed25519.PublicKey, ed25519.PublicKeySize)

// MinimumBalanceForRentExemption returns the lamports an account of the given
// data size must hold to be rent exempt.
func MinimumBalanceForRentExemption(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThreshold
}

func decompileBudget(m solana.Message) (*compute_budget.Budget, *solana.TransactionError) {
	budget, err := compute_budget.DecompileBudget(m)
	if err == nil {
		return budget, nil
	}

	for i := range m.Instructions {
		if compute_budget.IsProgram(m, i) {
			return nil, solana.NewInstructionError(i, solana.InstructionErrorInvalidInstructionData)
		}
	}
	return nil, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
}

func prioritizationFee(budget *compute_budget.Budget, m solana.Message) uint64 {
	if budget.ComputeUnitPrice == 0 {
		return 0
	}

	limit := uint64(budget.ComputeUnitLimit)
	if limit == 0 {
		for i := range m.Instructions {
			if !compute_budget.IsProgram(m, i) {
				limit += defaultComputeUnitsPerInstruction
			}
		}
	}
	if limit > maxComputeUnits {
		limit = maxComputeUnits
	}

	return (budget.ComputeUnitPrice*limit + microLamportsPerLamport - 1) / microLamportsPerLamport
}

// execute runs every instruction in order against accounts, stopping at the
// first failure. Callers discard accounts on failure.
func execute(accounts map[string]*accountState, m solana.Message) *solana.TransactionError {
	for i := range m.Instructions {
		var txErr *solana.TransactionError

		program := m.Accounts[m.Instructions[i].ProgramIndex]
		switch {
		case compute_budget.IsProgram(m, i):
			continue
		case system.IsProgram(m, i):
			txErr = executeSystem(accounts, m, i)
		case bytes.Equal(program, memo.ProgramKey):
			txErr = executeMemo(m, i)
		case bytes.Equal(program, counter.PROGRAM_ID):
			txErr = executeCounter(accounts, m, i)
		default:
			txErr = solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}

		if txErr != nil {
			return txErr
		}
	}

	// Accounts drained of lamports are garbage collected
	for k, v := range accounts {
		if v.lamports == 0 {
			delete(accounts, k)
		}
	}

	return nil
}

func executeSystem(accounts map[string]*accountState, m solana.Message, index int) *solana.TransactionError {
	if transfer, err := system.DecompileTransfer(m, index); err == nil {
		if !isSigner(m, transfer.From) {
			return solana.NewInstructionError(index, solana.InstructionErrorMissingRequiredSignature)
		}
		if !isWritable(m, transfer.From) || !isWritable(m, transfer.To) {
			return solana.NewInstructionError(index, solana.InstructionErrorReadonlyLamportChange)
		}

		from, ok := accounts[string(transfer.From)]
		if !ok || from.lamports < transfer.Lamports {
			return solana.NewCustomInstructionError(index, systemErrorResultWithNegativeLamports)
		}
		if len(from.data) > 0 {
			return solana.NewInstructionError(index, solana.InstructionErrorInvalidArgument)
		}

		from.lamports -= transfer.Lamports
		creditAccount(accounts, transfer.To, transfer.Lamports)
		return nil
	}

	if create, err := system.DecompileCreateAccount(m, index); err == nil {
		if !isSigner(m, create.Funder) || !isSigner(m, create.Address) {
			return solana.NewInstructionError(index, solana.InstructionErrorMissingRequiredSignature)
		}

		if existing, ok := accounts[string(create.Address)]; ok && (existing.lamports > 0 || len(existing.data) > 0) {
			return solana.NewCustomInstructionError(index, systemErrorAccountAlreadyInUse)
		}

		funder, ok := accounts[string(create.Funder)]
		if !ok || funder.lamports < create.Lamports {
			return solana.NewCustomInstructionError(index, systemErrorResultWithNegativeLamports)
		}

		funder.lamports -= create.Lamports
		accounts[string(create.Address)] = &accountState{
			lamports: create.Lamports,
			owner:    append(ed25519.PublicKey(nil), create.Owner...),
			data:     make([]byte, create.Size),
		}
		return nil
	}

	return solana.NewInstructionError(index, solana.InstructionErrorInvalidInstructionData)
}

func executeMemo(m solana.Message, index int) *solana.TransactionError {
	decompiled, err := memo.DecompileMemo(m, index)
	if err != nil {
		return solana.NewInstructionError(index, solana.InstructionErrorInvalidInstructionData)
	}

	if err := memo.Validate(string(decompiled.Data)); err != nil {
		return solana.NewInstructionError(index, solana.InstructionErrorInvalidInstructionData)
	}

	for _, signer := range decompiled.Signers {
		if !isSigner(m, signer) {
			return solana.NewInstructionError(index, solana.InstructionErrorMissingRequiredSignature)
		}
	}
	return nil
}

func executeCounter(accounts map[string]*accountState, m solana.Message, index int) *solana.TransactionError {
	decompiled, err := counter.DecompileInstruction(m, index)
	if err != nil {
		return solana.NewInstructionError(index, solana.InstructionErrorInvalidInstructionData)
	}

	if decompiled.Type == counter.InstructionTypeInitialize {
		if !isSigner(m, decompiled.Payer) || !isSigner(m, decompiled.Counter) {
			return solana.NewInstructionError(index, solana.InstructionErrorMissingRequiredSignature)
		}

		if _, ok := accounts[string(decompiled.Counter)]; ok {
			return solana.NewCustomInstructionError(index, systemErrorAccountAlreadyInUse)
		}

		rent := MinimumBalanceForRentExemption(counter.CounterAccountSize)
		payer, ok := accounts[string(decompiled.Payer)]
		if !ok || payer.lamports < rent {
			return solana.NewCustomInstructionError(index, systemErrorResultWithNegativeLamports)
		}

		state := &counter.CounterAccount{Address: decompiled.Counter}
		payer.lamports -= rent
		accounts[string(decompiled.Counter)] = &accountState{
			lamports: rent,
			owner:    append(ed25519.PublicKey(nil), counter.PROGRAM_ID...),
			data:     state.Marshal(),
		}
		return nil
	}

	if !isWritable(m, decompiled.Counter) {
		return solana.NewInstructionError(index, solana.InstructionErrorReadonlyDataModified)
	}

	account, ok := accounts[string(decompiled.Counter)]
	if !ok {
		return solana.NewCustomInstructionError(index, anchorErrorAccountNotInitialized)
	}
	if !bytes.Equal(account.owner, counter.PROGRAM_ID) {
		return solana.NewCustomInstructionError(index, anchorErrorAccountOwnedByWrongProgram)
	}

	state := &counter.CounterAccount{Address: decompiled.Counter}
	if err := state.Unmarshal(account.data); err != nil {
		return solana.NewCustomInstructionError(index, anchorErrorAccountDidNotDeserialize)
	}

	switch decompiled.Type {
	case counter.InstructionTypeIncrement:
		if state.Count == math.MaxUint64 {
			return solana.NewCustomInstructionError(index, counter.ErrorCodeCountOverflow)
		}
		state.Count++
	case counter.InstructionTypeDecrement:
		if state.Count == 0 {
			return solana.NewCustomInstructionError(index, counter.ErrorCodeCountUnderflow)
		}
		state.Count--
	}

	account.data = state.Marshal()
	return nil
}

func creditAccount(accounts map[string]*accountState, key ed25519.PublicKey, lamports uint64) {
	state, ok := accounts[string(key)]
	if !ok {
		state = &accountState{owner: systemProgramKey}
		accounts[string(key)] = state
	}
	state.lamports += lamports
}

func isSigner(m solana.Message, key ed25519.PublicKey) bool {
	for i := 0; i < int(m.Header.NumSignatures) && i < len(m.Accounts); i++ {
		if bytes.Equal(m.Accounts[i], key) {
			return true
		}
	}
	return false
}

func isWritable(m solana.Message, key ed25519.PublicKey) bool {
	for i, account := range m.Accounts {
		if bytes.Equal(account, key) {
			return m.IsWritable(i)
		}
	}
	return false
}
