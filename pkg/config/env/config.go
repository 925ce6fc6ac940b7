package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/code-payments/solana-starter/pkg/config"
	"github.com/code-payments/solana-starter/pkg/config/wrapper"
)

// variable is a config.Config read from an environment variable on every
// Get, so changes are picked up without a restart. Empty counts as unset.
type variable string

func NewConfig(key string) config.Config {
	return variable(strings.ToUpper(key))
}

func (v variable) Get(_ context.Context) (interface{}, error) {
	value, ok := os.LookupEnv(string(v))
	if !ok || value == "" {
		return nil, config.ErrNoValue
	}
	return []byte(value), nil
}

func (v variable) Shutdown() {}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
