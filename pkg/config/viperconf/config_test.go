package viperconf

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/code-payments/solana-starter/pkg/config"
)

func TestConfig(t *testing.T) {
	v := viper.New()

	_, err := NewConfig(v, "missing").Get(context.Background())
	assert.Equal(t, config.ErrNoValue, err)

	v.Set("empty", "")
	_, err = NewConfig(v, "empty").Get(context.Background())
	assert.Equal(t, config.ErrNoValue, err)

	v.Set("timeout", "3s")
	assert.Equal(t, 3*time.Second, NewDurationConfig(v, "timeout", time.Second).Get(context.Background()))

	v.Set("limit", 12)
	assert.EqualValues(t, 12, NewUint64Config(v, "limit", 1).Get(context.Background()))

	v.Set("enabled", true)
	assert.True(t, NewBoolConfig(v, "enabled", false).Get(context.Background()))

	assert.Equal(t, "fallback", NewStringConfig(v, "memo", "fallback").Get(context.Background()))
}

func TestConfig_Env(t *testing.T) {
	v := viper.New()
	v.SetEnvPrefix("viperconf_test")
	v.AutomaticEnv()

	t.Setenv("VIPERCONF_TEST_MEMO", "gm")
	assert.Equal(t, "gm", NewStringConfig(v, "memo", "").Get(context.Background()))
}
