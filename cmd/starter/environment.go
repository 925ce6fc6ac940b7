package main

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/solana-starter/pkg/rate"
	"github.com/code-payments/solana-starter/pkg/sol"
	"github.com/code-payments/solana-starter/pkg/solana"
	counter_program "github.com/code-payments/solana-starter/pkg/solana/counter"
	"github.com/code-payments/solana-starter/pkg/starter/common"
	"github.com/code-payments/solana-starter/pkg/starter/explorer"
	"github.com/code-payments/solana-starter/pkg/starter/ledger"
	memory_ledger "github.com/code-payments/solana-starter/pkg/starter/ledger/memory"
	rpc_ledger "github.com/code-payments/solana-starter/pkg/starter/ledger/rpc"
	"github.com/code-payments/solana-starter/pkg/starter/transaction"
	"github.com/code-payments/solana-starter/pkg/starter/wallet"
)

const (
	localStartingBalance = "10"
)

// environment holds everything a command needs to drive a session.
type environment struct {
	log    *logrus.Entry
	config Config

	ledger  ledger.Ledger
	wallet  *wallet.KeypairAdapter
	builder *transaction.Builder
}

func newEnvironment(ctx context.Context, config Config) (*environment, error) {
	log := logrus.StandardLogger().WithField("type", "cmd/starter")

	if len(config.CounterProgram) > 0 {
		programID, err := common.NewKeyFromString(config.CounterProgram)
		if err != nil {
			return nil, errors.Wrap(err, "invalid counter program id")
		}
		counter_program.PROGRAM_ID = programID.ToBytes()
	}

	account, err := loadWalletAccount(config)
	if err != nil {
		return nil, err
	}

	var approver wallet.Approver = newPromptApprover()
	if config.AutoApprove {
		approver = wallet.AutoApprove
	}

	adapter, err := wallet.NewKeypairAdapter(account, wallet.WithApprover(approver))
	if err != nil {
		return nil, err
	}
	wallet.Connect(adapter)

	var l ledger.Ledger
	if config.Local {
		local := memory_ledger.New()
		if _, err := local.RequestAirdrop(ctx, account.PublicKey().ToBytes(), sol.MustStrToLamports(localStartingBalance)); err != nil {
			return nil, err
		}
		l = local
	} else {
		limiter := rate.Limiter(&rate.NoLimiter{})
		if config.RPCRateLimit > 0 {
			limiter = rate.NewLocalRateLimiter(xrate.Limit(config.RPCRateLimit))
		}
		l = rpc_ledger.New(solana.New(config.RPCEndpoint), limiter, rpc_ledger.WithViperConfigs(viper.GetViper()))
	}

	var builderOpts []transaction.Option
	if config.ComputeUnitPrice > 0 {
		builderOpts = append(builderOpts, transaction.WithComputeUnitPrice(config.ComputeUnitPrice))
	}
	if config.ComputeUnitLimit > 0 {
		builderOpts = append(builderOpts, transaction.WithComputeUnitLimit(config.ComputeUnitLimit))
	}

	log.WithFields(logrus.Fields{
		"wallet": account.PublicKey().ToBase58(),
		"local":  config.Local,
	}).Debug("environment ready")

	return &environment{
		log:     log,
		config:  config,
		ledger:  l,
		wallet:  adapter,
		builder: transaction.NewBuilder(builderOpts...),
	}, nil
}

func loadWalletAccount(config Config) (*common.Account, error) {
	if len(config.Mnemonic) > 0 {
		return wallet.AccountFromMnemonic(config.Mnemonic, config.MnemonicPassphrase)
	}

	path := config.Keypair
	if len(path) == 0 {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".config", "solana", "id.json")
		}
	}

	account, err := wallet.LoadKeypairFile(path)
	if err == nil {
		return account, nil
	}

	// A throwaway wallet is enough for a ledger that only lives as long as
	// the process
	if config.Local && len(config.Keypair) == 0 {
		return common.NewRandomAccount()
	}
	return nil, errors.Wrapf(err, "error loading wallet from %s", path)
}

func (e *environment) walletKey() ed25519.PublicKey {
	key, _ := e.wallet.PublicKey()
	return key
}

func (e *environment) printSignature(label string, sig solana.Signature) {
	color.Green("✓ %s", label)
	fmt.Printf("  Signature: %s\n", sig)
	if !e.config.Local {
		fmt.Printf("  Explorer:  %s\n", explorer.TransactionURL(sig, e.cluster(), explorer.WithHost(e.config.ExplorerHost)))
	}
}

func (e *environment) cluster() solana.Cluster {
	if len(e.config.Cluster) > 0 {
		return solana.Cluster(e.config.Cluster)
	}
	return solana.Environment(e.config.RPCEndpoint).Cluster()
}
