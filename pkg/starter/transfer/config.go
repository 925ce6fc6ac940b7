package transfer

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/config"
	"github.com/code-payments/solana-starter/pkg/config/env"
	"github.com/code-payments/solana-starter/pkg/config/memory"
	"github.com/code-payments/solana-starter/pkg/config/viperconf"
	"github.com/code-payments/solana-starter/pkg/config/wrapper"
)

const (
	envConfigPrefix = "TRANSFER_SESSION_"

	SubmitTimeoutConfigEnvName = envConfigPrefix + "SUBMIT_TIMEOUT"
	defaultSubmitTimeout       = time.Minute

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	// MemoConfigEnvName is attached to every transfer as a memo instruction
	// when non-empty.
	MemoConfigEnvName = envConfigPrefix + "MEMO"
	defaultMemo       = ""
)

type conf struct {
	submitTimeout config.Duration
	skipPreflight config.Bool
	commitment    config.String
	memo          config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			submitTimeout: env.NewDurationConfig(SubmitTimeoutConfigEnvName, defaultSubmitTimeout),
			skipPreflight: env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
			commitment:    env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			memo:          env.NewStringConfig(MemoConfigEnvName, defaultMemo),
		}
	}
}

// WithViperConfigs returns configuration pulled from viper using the
// lowercased environment variable names as keys.
func WithViperConfigs(v *viper.Viper) ConfigProvider {
	return func() *conf {
		return &conf{
			submitTimeout: viperconf.NewDurationConfig(v, strings.ToLower(SubmitTimeoutConfigEnvName), defaultSubmitTimeout),
			skipPreflight: viperconf.NewBoolConfig(v, strings.ToLower(SkipPreflightConfigEnvName), defaultSkipPreflight),
			commitment:    viperconf.NewStringConfig(v, strings.ToLower(CommitmentConfigEnvName), defaultCommitment),
			memo:          viperconf.NewStringConfig(v, strings.ToLower(MemoConfigEnvName), defaultMemo),
		}
	}
}

type testOverrides struct {
	submitTimeout time.Duration
	memo          string
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			submitTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.submitTimeout), defaultSubmitTimeout),
			skipPreflight: wrapper.NewBoolConfig(memory.NewConfig(defaultSkipPreflight), defaultSkipPreflight),
			commitment:    wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
			memo:          wrapper.NewStringConfig(memory.NewConfig(overrides.memo), defaultMemo),
		}
	}
}
