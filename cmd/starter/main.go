package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/code-payments/solana-starter/pkg/metrics"
)

var (
	configPath string

	// Set for every command by the root command's pre run
	env *environment

	endTransaction = func() {}
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "starter",
		Short:         "Drive a Solana counter program, send SOL and watch balances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "keygen" {
				return nil
			}

			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			app, err := newMetricsProvider(config)
			if err != nil {
				return err
			}
			configureLogger(config, app)

			ctx, end := metrics.StartTransaction(cmd.Context(), app, "starter__"+strings.ReplaceAll(cmd.CommandPath(), " ", "_"))
			cmd.SetContext(ctx)
			endTransaction = func() {
				end()
				if app != nil {
					app.Shutdown(0)
				}
			}

			env, err = newEnvironment(ctx, config)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			endTransaction()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "starter.yaml", "configuration file path")
	flags.Bool("local", false, "use an in process ledger instead of an RPC node")
	flags.String("rpc", defaultConfig.RPCEndpoint, "RPC endpoint")
	flags.String("cluster", "", "cluster name used in explorer links")
	flags.String("keypair", "", "wallet keypair file (defaults to the Solana CLI keypair)")
	flags.Bool("yes", false, "approve every transaction without prompting")
	flags.String("counter-program", "", "counter program id")
	flags.Uint64("priority-fee", 0, "compute unit price in micro-lamports")
	flags.String("log-level", defaultConfig.LogLevel, "log level")

	for key, flag := range map[string]string{
		"local":              "local",
		"rpc_endpoint":       "rpc",
		"cluster":            "cluster",
		"keypair":            "keypair",
		"auto_approve":       "yes",
		"counter_program":    "counter-program",
		"compute_unit_price": "priority-fee",
		"log_level":          "log-level",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newBalanceCmd(),
		newTransferCmd(),
		newCounterCmd(),
		newAirdropCmd(),
		newKeygenCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		endTransaction()
		color.Red("✗ %s", describeError(err))
		stop()
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (Config, error) {
	// viper only reports a missing file it had to search for, so an explicit
	// path is checked here
	if _, err := os.Stat(configPath); err == nil {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "failed to load config")
		}
	} else if !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to check if config exists")
	} else if cmd.Flags().Changed("config") {
		return Config{}, errors.Errorf("config file %s doesn't exist", configPath)
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return config, nil
}

func newMetricsProvider(config Config) (*newrelic.Application, error) {
	if len(config.NewRelicLicenseKey) == 0 {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return app, nil
}

func configureLogger(config Config, app *newrelic.Application) {
	if app != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(app, &logrus.TextFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
