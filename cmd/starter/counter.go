package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/counter"
	"github.com/code-payments/solana-starter/pkg/starter/explorer"
)

func newCounterCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Drive the counter program",
	}
	cmd.PersistentFlags().StringVar(&address, "address", "", "existing counter account")

	newSession := func(ctx context.Context, attach bool) (*counter.Session, error) {
		session := counter.NewSession(env.ledger, env.wallet, env.builder, counter.WithViperConfigs(viper.GetViper()))
		if !attach {
			return session, nil
		}

		if len(address) == 0 {
			return nil, fmt.Errorf("--address is required")
		}
		key, err := common.NewKeyFromString(address)
		if err != nil {
			return nil, err
		}
		return session, session.Attach(ctx, key.ToBytes())
	}

	adjust := func(use, short string, op func(*counter.Session, context.Context) (solana.Signature, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				session, err := newSession(cmd.Context(), true)
				if err != nil {
					return err
				}

				sig, err := op(session, cmd.Context())
				if err != nil {
					return err
				}

				env.printSignature(fmt.Sprintf("Counter %sed", use), sig)
				printCount(session)
				return nil
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create a new counter account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				session, err := newSession(cmd.Context(), false)
				if err != nil {
					return err
				}

				sig, err := session.Initialize(cmd.Context())
				if err != nil {
					return err
				}

				env.printSignature("Counter initialized", sig)
				printCount(session)
				return nil
			},
		},
		adjust("increment", "Add one to the counter", (*counter.Session).Increment),
		adjust("decrement", "Subtract one from the counter", (*counter.Session).Decrement),
		&cobra.Command{
			Use:   "show",
			Short: "Show the counter's value",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				session, err := newSession(cmd.Context(), true)
				if err != nil {
					return err
				}

				printCount(session)
				return nil
			},
		},
		&cobra.Command{
			Use:   "demo",
			Short: "Initialize a counter, increment it three times and decrement it once",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()

				session, err := newSession(ctx, false)
				if err != nil {
					return err
				}

				sig, err := session.Initialize(ctx)
				if err != nil {
					return err
				}
				env.printSignature("Counter initialized", sig)

				steps := []func(*counter.Session, context.Context) (solana.Signature, error){
					(*counter.Session).Increment,
					(*counter.Session).Increment,
					(*counter.Session).Increment,
					(*counter.Session).Decrement,
				}
				for _, step := range steps {
					sig, err := step(session, ctx)
					if err != nil {
						return err
					}
					env.printSignature("Counter adjusted", sig)
					printCount(session)
				}
				return nil
			},
		},
	)

	return cmd
}

func printCount(session *counter.Session) {
	fmt.Printf("  Counter:   %s\n", base58.Encode(session.Address()))
	if !env.config.Local {
		fmt.Printf("             %s\n", explorer.AccountURL(session.Address(), env.cluster(), explorer.WithHost(env.config.ExplorerHost)))
	}

	count, ok := session.Count()
	if !ok {
		color.Yellow("  Count:     unknown")
		return
	}
	fmt.Printf("  Count:     %s\n", color.CyanString("%d", count))
}
