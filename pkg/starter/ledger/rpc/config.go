package rpc

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/config"
	"github.com/code-payments/solana-starter/pkg/config/env"
	"github.com/code-payments/solana-starter/pkg/config/memory"
	"github.com/code-payments/solana-starter/pkg/config/viperconf"
	"github.com/code-payments/solana-starter/pkg/config/wrapper"
	"github.com/code-payments/solana-starter/pkg/solana"
)

const (
	envConfigPrefix = "RPC_LEDGER_"

	ReadCommitmentConfigEnvName = envConfigPrefix + "READ_COMMITMENT"
	defaultReadCommitment       = "confirmed"

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = solana.PollRate

	MaxConfirmationPollsConfigEnvName = envConfigPrefix + "MAX_CONFIRMATION_POLLS"
	defaultMaxConfirmationPolls       = 0 // unlimited, bounded by the checkpoint and context
)

type conf struct {
	readCommitment           config.String
	confirmationPollInterval config.Duration
	maxConfirmationPolls     config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:           env.NewStringConfig(ReadCommitmentConfigEnvName, defaultReadCommitment),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			maxConfirmationPolls:     env.NewUint64Config(MaxConfirmationPollsConfigEnvName, defaultMaxConfirmationPolls),
		}
	}
}

type testOverrides struct {
	confirmationPollInterval time.Duration
	maxConfirmationPolls     uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:           wrapper.NewStringConfig(memory.NewConfig(defaultReadCommitment), defaultReadCommitment),
			confirmationPollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationPollInterval), defaultConfirmationPollInterval),
			maxConfirmationPolls:     wrapper.NewUint64Config(memory.NewConfig(overrides.maxConfirmationPolls), defaultMaxConfirmationPolls),
		}
	}
}

// WithViperConfigs returns configuration pulled from viper, which covers the
// environment variables above plus any flags or config file bound to the
// lowercased key names.
func WithViperConfigs(v *viper.Viper) ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:           viperconf.NewStringConfig(v, strings.ToLower(ReadCommitmentConfigEnvName), defaultReadCommitment),
			confirmationPollInterval: viperconf.NewDurationConfig(v, strings.ToLower(ConfirmationPollIntervalConfigEnvName), defaultConfirmationPollInterval),
			maxConfirmationPolls:     viperconf.NewUint64Config(v, strings.ToLower(MaxConfirmationPollsConfigEnvName), defaultMaxConfirmationPolls),
		}
	}
}
