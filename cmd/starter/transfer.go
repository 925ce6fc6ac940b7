package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/transfer"
)

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer <recipient> <amount>",
		Short: "Send SOL from the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			recipient, err := common.NewKeyFromString(args[0])
			if err != nil {
				return err
			}

			session := transfer.NewSession(env.ledger, env.wallet, env.builder, transfer.WithViperConfigs(viper.GetViper()))

			balance, err := session.LoadBalance(ctx)
			if err != nil {
				return err
			}
			dimColor.Printf("Balance: %s SOL\n", sol.DisplayFromLamports(balance))

			sig, err := session.Transfer(ctx, recipient.ToBytes(), args[1])
			if err != nil {
				return err
			}

			env.printSignature(fmt.Sprintf("Sent %s SOL to %s", args[1], recipient.ToBase58()), sig)

			remaining, _ := session.Balance()
			fmt.Printf("  Balance:   %s SOL\n", color.CyanString(sol.DisplayFromLamports(remaining)))
			return nil
		},
	}

	cmd.Flags().String("memo", "", "attach a memo to the transfer")
	_ = viper.BindPFlag("transfer_session_memo", cmd.Flags().Lookup("memo"))

	return cmd
}
