package realtime

import (
	"context"
	"sync"
)

// The package-level accessors mirror the historical singleton surface that
// UI-layer callers expect: one shared handle process-wide, torn down on
// sign-out. They delegate to a default Manager installed by the application
// root; prefer holding a *Manager directly in new code.

var (
	defaultMu  sync.RWMutex
	defaultMgr *Manager
)

// SetDefault installs the manager backing the package-level accessors.
func SetDefault(m *Manager) {
	defaultMu.Lock()
	defaultMgr = m
	defaultMu.Unlock()
}

func defaultManager() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultMgr
}

// InitSocket connects the default manager. Returns nil when no manager is
// installed, no token is stored, or the dial fails.
func InitSocket() *Conn {
	m := defaultManager()
	if m == nil {
		return nil
	}
	conn, err := m.Init(context.Background())
	if err != nil {
		return nil
	}
	return conn
}

// DisconnectSocket tears down the default manager's handle. Idempotent.
func DisconnectSocket() {
	if m := defaultManager(); m != nil {
		m.Disconnect()
	}
}

// GetSocket returns the default manager's live handle, nil if none.
func GetSocket() *Conn {
	m := defaultManager()
	if m == nil {
		return nil
	}
	return m.Current()
}

// IsSocketConnected reports whether the default manager's handle is live.
func IsSocketConnected() bool {
	m := defaultManager()
	return m != nil && m.IsConnected()
}
