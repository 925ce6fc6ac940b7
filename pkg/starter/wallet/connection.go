package wallet

import (
	"sync"
)

// The process holds at most one connected wallet. Sessions receive the
// adapter at construction rather than reading it from here.
var (
	connectionMu sync.RWMutex
	active       Adapter
)

type disconnecter interface {
	Disconnect()
}

// Connect makes adapter the active wallet, disconnecting any previous one.
func Connect(adapter Adapter) {
	connectionMu.Lock()
	defer connectionMu.Unlock()

	if active != nil && active != adapter {
		if previous, ok := active.(disconnecter); ok {
			previous.Disconnect()
		}
	}
	active = adapter
}

// Disconnect tears down the active wallet, if any.
func Disconnect() {
	connectionMu.Lock()
	defer connectionMu.Unlock()

	if d, ok := active.(disconnecter); ok {
		d.Disconnect()
	}
	active = nil
}

// Active returns the connected wallet, or nil.
func Active() Adapter {
	connectionMu.RLock()
	defer connectionMu.RUnlock()

	return active
}
