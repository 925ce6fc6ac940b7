package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/solana"
	compute_budget "github.com/code-payments/solana-starter/pkg/solana/computebudget"
	"github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/solana/memo"
	"github.com/code-payments/solana-starter/pkg/solana/system"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

var dimColor = color.New(color.Faint)

// promptApprover asks on the terminal before the wallet signs anything.
type promptApprover struct{}

func newPromptApprover() wallet.Approver {
	return &promptApprover{}
}

func (a *promptApprover) Approve(ctx context.Context, txn *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Fee payer: %s\n", base58.Encode(txn.FeePayer()))
	for i := range txn.Message.Instructions {
		dimColor.Printf("  %d. %s\n", i+1, describeInstruction(txn.Message, i))
	}

	prompt := promptui.Prompt{
		Label:     "Sign and send",
		IsConfirm: true,
		Default:   "y",
	}

	if _, err := prompt.Run(); err != nil {
		if err == promptui.ErrAbort || err == promptui.ErrInterrupt {
			return wallet.ErrUserRejected
		}
		return errors.Wrap(err, "error prompting for approval")
	}
	return nil
}

func describeInstruction(m solana.Message, index int) string {
	if transfer, err := system.DecompileTransfer(m, index); err == nil {
		return fmt.Sprintf("transfer %s SOL to %s", sol.DisplayFromLamports(transfer.Lamports), base58.Encode(transfer.To))
	}
	if create, err := system.DecompileCreateAccount(m, index); err == nil {
		return fmt.Sprintf("create account %s", base58.Encode(create.Address))
	}
	if decompiled, err := counter.DecompileInstruction(m, index); err == nil {
		return fmt.Sprintf("counter %s %s", decompiled.Type, base58.Encode(decompiled.Counter))
	}
	if decompiled, err := memo.DecompileMemo(m, index); err == nil {
		return fmt.Sprintf("memo %q", string(decompiled.Data))
	}
	if compute_budget.IsProgram(m, index) {
		return "compute budget"
	}
	return fmt.Sprintf("program %s", base58.Encode(m.Accounts[m.Instructions[index].ProgramIndex]))
}
