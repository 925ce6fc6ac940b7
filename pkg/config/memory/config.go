package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/solana-starter/pkg/config"
)

var errInduced = errors.New("memory config: induced error")

// Config is a config.Config backed by a value held in memory. Sessions use it
// for defaults and test overrides.
type Config struct {
	mu    sync.RWMutex
	state state
}

type state struct {
	value    interface{}
	induced  bool
	shutdown bool
}

// NewConfig returns a config holding value. A nil value reads as unset.
func NewConfig(value interface{}) *Config {
	return &Config{state: state{value: value}}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	s := c.state
	c.mu.RUnlock()

	switch {
	case s.shutdown:
		return nil, config.ErrShutdown
	case s.induced:
		return nil, errInduced
	case s.value == nil:
		return nil, config.ErrNoValue
	default:
		return s.value, nil
	}
}

func (c *Config) Shutdown() {
	c.update(func(s *state) { s.shutdown = true })
}

// SetValue replaces the value returned by Get
func (c *Config) SetValue(value interface{}) {
	c.update(func(s *state) { s.value = value })
}

// ClearValue makes Get return config.ErrNoValue
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// InduceErrors makes Get fail until StopInducingErrors is called
func (c *Config) InduceErrors() {
	c.update(func(s *state) { s.induced = true })
}

func (c *Config) StopInducingErrors() {
	c.update(func(s *state) { s.induced = false })
}

func (c *Config) update(fn func(*state)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}
