package main

import (
	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/solana"
	"github.com/code-payments/solana-starter/pkg/starter/explorer"
)

// Config is the CLI configuration. Every field can be set through a flag, an
// environment variable or the config file.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// Metrics are only recorded when a license key is provided
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Local runs every command against an in process ledger instead of an
	// RPC node. State doesn't survive across invocations.
	Local bool `mapstructure:"local"`

	RPCEndpoint  string  `mapstructure:"rpc_endpoint"`
	RPCRateLimit float64 `mapstructure:"rpc_rate_limit"`

	// Cluster is derived from the RPC endpoint when unset
	Cluster      string `mapstructure:"cluster"`
	ExplorerHost string `mapstructure:"explorer_host"`

	// Wallet. A mnemonic takes precedence over a keypair file.
	Keypair            string `mapstructure:"keypair"`
	Mnemonic           string `mapstructure:"mnemonic"`
	MnemonicPassphrase string `mapstructure:"mnemonic_passphrase"`
	AutoApprove        bool   `mapstructure:"auto_approve"`

	CounterProgram string `mapstructure:"counter_program"`

	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`
	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
}

var defaultConfig = Config{
	LogLevel: "warn",

	AppName: "solana-starter",

	RPCEndpoint:  string(solana.EnvironmentDev),
	RPCRateLimit: 5,

	ExplorerHost: explorer.DefaultHost,
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")

	_ = viper.BindEnv("local", "STARTER_LOCAL")

	_ = viper.BindEnv("rpc_endpoint", "RPC_ENDPOINT")
	_ = viper.BindEnv("rpc_rate_limit", "RPC_RATE_LIMIT")

	_ = viper.BindEnv("cluster", "CLUSTER")
	_ = viper.BindEnv("explorer_host", "EXPLORER_HOST")

	_ = viper.BindEnv("keypair", "KEYPAIR")
	_ = viper.BindEnv("mnemonic", "MNEMONIC")
	_ = viper.BindEnv("mnemonic_passphrase", "MNEMONIC_PASSPHRASE")
	_ = viper.BindEnv("auto_approve", "AUTO_APPROVE")

	_ = viper.BindEnv("counter_program", "COUNTER_PROGRAM")

	_ = viper.BindEnv("compute_unit_price", "COMPUTE_UNIT_PRICE")
	_ = viper.BindEnv("compute_unit_limit", "COMPUTE_UNIT_LIMIT")
}
