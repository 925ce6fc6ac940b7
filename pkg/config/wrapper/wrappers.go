package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-starter/pkg/config"
)

// ErrUnsupportedConversion is returned when an override holds a value of a
// type the wrapper can't convert
var ErrUnsupportedConversion = errors.New("config: unsupported override type")

// converter turns a raw override value into T. Sources like env and files
// yield []byte or string, in-memory sources yield T directly.
type converter[T any] func(raw interface{}) (T, error)

// typed layers a default and a conversion over an untyped config.Config. The
// last successfully read value is served while the source is failing.
type typed[T any] struct {
	source       config.Config
	defaultValue T
	convert      converter[T]

	mu   sync.RWMutex
	last T
}

func newTyped[T any](source config.Config, defaultValue T, convert converter[T]) *typed[T] {
	return &typed[T]{
		source:       source,
		defaultValue: defaultValue,
		convert:      convert,
		last:         defaultValue,
	}
}

// NewBoolConfig parses text overrides with strconv.ParseBool
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newTyped(override, defaultValue, fromText(strconv.ParseBool))
}

// NewDurationConfig parses text overrides with time.ParseDuration
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newTyped(override, defaultValue, fromText(time.ParseDuration))
}

// NewUint64Config accepts non-negative integers and decimal text
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newTyped(override, defaultValue, func(raw interface{}) (uint64, error) {
		switch v := raw.(type) {
		case int:
			if v < 0 {
				return 0, errors.Errorf("negative value %d", v)
			}
			return uint64(v), nil
		case int64:
			if v < 0 {
				return 0, errors.Errorf("negative value %d", v)
			}
			return uint64(v), nil
		}
		return fromText(func(s string) (uint64, error) {
			return strconv.ParseUint(s, 10, 64)
		})(raw)
	})
}

func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newTyped(override, defaultValue, fromText(func(s string) (string, error) {
		return s, nil
	}))
}

// GetSafe returns the current value. A missing override yields the default.
// On a read or conversion failure the last good value is returned with the
// error.
func (c *typed[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.source.Get(ctx)
	switch {
	case err == config.ErrNoValue:
		return c.remember(c.defaultValue), nil
	case err != nil:
		return c.lastValue(), err
	}

	value, err := c.convert(raw)
	if err != nil {
		return c.lastValue(), err
	}
	return c.remember(value), nil
}

func (c *typed[T]) Get(ctx context.Context) T {
	value, _ := c.GetSafe(ctx)
	return value
}

func (c *typed[T]) Shutdown() {
	c.source.Shutdown()
}

func (c *typed[T]) lastValue() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *typed[T]) remember(value T) T {
	c.mu.Lock()
	c.last = value
	c.mu.Unlock()
	return value
}

// fromText accepts T as-is and parses []byte and string sources.
func fromText[T any](parse func(string) (T, error)) converter[T] {
	return func(raw interface{}) (T, error) {
		var zero T
		switch v := raw.(type) {
		case T:
			return v, nil
		case []byte:
			return parse(string(v))
		case string:
			return parse(v)
		default:
			return zero, ErrUnsupportedConversion
		}
	}
}
