package counter

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
	envConfigPrefix = "COUNTER_SESSION_"

	SubmitTimeoutConfigEnvName = envConfigPrefix + "SUBMIT_TIMEOUT"
	defaultSubmitTimeout       = time.Minute

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = true

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"
)

type conf struct {
	submitTimeout config.Duration
	skipPreflight config.Bool
	commitment    config.String
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
		}
	}
}

type testOverrides struct {
	submitTimeout time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			submitTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.submitTimeout), defaultSubmitTimeout),
			skipPreflight: wrapper.NewBoolConfig(memory.NewConfig(defaultSkipPreflight), defaultSkipPreflight),
			commitment:    wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
		}
	}
}
