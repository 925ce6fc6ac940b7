package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

func newKeygenCmd() *cobra.Command {
	var (
		out        string
		passphrase string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a mnemonic backed wallet keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil && !force {
				return errors.Errorf("%s already exists, use --force to overwrite", out)
			}

			mnemonic, err := wallet.NewMnemonic()
			if err != nil {
				return err
			}

			account, err := wallet.AccountFromMnemonic(mnemonic, passphrase)
			if err != nil {
				return err
			}

			data, err := wallet.MarshalKeypair(account)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0600); err != nil {
				return errors.Wrap(err, "error writing keypair")
			}

			color.Green("✓ Wrote keypair to %s", out)
			fmt.Printf("  Public key: %s\n", account.PublicKey().ToBase58())
			color.Yellow("  Save this mnemonic to recover the wallet:")
			fmt.Printf("  %s\n", mnemonic)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "outfile", "o", "starter-keypair.json", "keypair output path")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "optional BIP-39 passphrase")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair")

	return cmd
}
