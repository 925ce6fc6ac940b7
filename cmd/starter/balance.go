package main

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/code-payments/solana-starter/pkg/starter/balance"
	"github.com/code-payments/solana-starter/pkg/starter/common"
)

func newBalanceCmd() *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the SOL balance of an account (defaults to the wallet)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			identity := env.walletKey()
			if len(args) == 1 {
				key, err := common.NewKeyFromString(args[0])
				if err != nil {
					return err
				}
				identity = ed25519.PublicKey(key.ToBytes())
			}

			view := balance.NewView(env.ledger)
			if err := view.Observe(ctx, identity); err != nil {
				return err
			}
			printBalance(view)

			if poll <= 0 {
				return nil
			}

			go func() {
				_ = view.Poll(ctx, poll)
			}()

			last, _ := view.Balance()
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if current, ok := view.Balance(); ok && current != last {
						last = current
						printBalance(view)
					}
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&poll, "poll", 0, "keep watching the balance at this interval")

	return cmd
}

func printBalance(view *balance.View) {
	fmt.Printf("%s  %s SOL\n", base58.Encode(view.Identity()), color.CyanString(view.DisplayBalance()))
}
