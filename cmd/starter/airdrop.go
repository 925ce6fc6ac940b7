package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
)

func newAirdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [amount]",
		Short: "Request test SOL for the wallet (devnet, testnet or --local)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := "1"
			if len(args) == 1 {
				amount = args[0]
			}

			lamports, err := sol.StrToLamports(amount)
			if err != nil {
				return err
			}

			airdropper, ok := env.ledger.(ledger.Airdropper)
			if !ok {
				return errors.New("ledger doesn't support airdrops")
			}

			sig, err := airdropper.RequestAirdrop(cmd.Context(), env.walletKey(), lamports)
			if err != nil {
				return err
			}

			env.printSignature(fmt.Sprintf("Airdropped %s SOL", amount), sig)
			return nil
		},
	}
}
