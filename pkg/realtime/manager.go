package realtime

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
	"github.com/manas-swain-001/cms-client/pkg/store"
)

// Config for a Manager. SocketURL wins when set; otherwise the endpoint is
// derived from the HTTP base URL; otherwise a hardcoded fallback is used.
type Config struct {
	SocketURL string
	BaseURL   string

	// MaxReconnects bounds the reconnection loop after an unexpected drop.
	MaxReconnects int
	// ReconnectDelay is the first reconnection delay; it doubles per attempt.
	ReconnectDelay time.Duration
}

// Manager owns the process's single realtime connection handle. It replaces
// ambient module-level socket state with an explicit object a root context
// can hand to consumers.
type Manager struct {
	cfg   Config
	store *store.Store
	log   logger.Logger

	mu   sync.Mutex
	conn *Conn
	subs map[int]chan *Conn
	next int
}

// NewManager builds a Manager. The store supplies the auth token at dial
// time; without a token Init refuses to connect.
func NewManager(cfg Config, st *store.Store, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Default()
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = constants.MaxReconnectAttempts
	}
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = constants.ReconnectBaseDelay
	}
	return &Manager{cfg: cfg, store: st, log: log, subs: make(map[int]chan *Conn)}
}

// Endpoint returns the realtime endpoint the manager will dial.
func (m *Manager) Endpoint() string {
	return deriveEndpoint(m.cfg.SocketURL, m.cfg.BaseURL)
}

// Init connects and returns the live handle. If a live handle already
// exists it is returned as-is. Without a stored auth token no connection is
// attempted and the handle is nil.
func (m *Manager) Init(ctx context.Context) (*Conn, error) {
	m.mu.Lock()
	if m.conn != nil && m.conn.IsConnected() {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	token := m.store.GetString(constants.AuthTokenKey)
	if token == "" {
		m.log.Info("realtime: no auth token, not connecting")
		return nil, constants.ErrNoAuthToken
	}

	conn := NewConn(m.Endpoint(), token, m.log)
	conn.onDrop = func() { m.reconnect(conn) }
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.publish(conn)

	return conn, nil
}

// Disconnect tears down the live handle and clears the singleton reference.
// Safe to call when nothing is connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Warn("realtime: close failed", "error", err)
		}
	}
}

// Current returns the live handle without side effects, nil if none.
func (m *Manager) Current() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// IsConnected reports the transport's connected flag, false with no handle.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	return conn != nil && conn.IsConnected()
}

// Subscribe returns a channel that receives every live handle the manager
// produces, starting with the current one if connected. This lets consumers
// re-attach listeners across reconnects without polling. Cancel releases
// the subscription.
func (m *Manager) Subscribe() (<-chan *Conn, func()) {
	ch := make(chan *Conn, 4)

	m.mu.Lock()
	m.next++
	id := m.next
	m.subs[id] = ch
	conn := m.conn
	m.mu.Unlock()

	if conn != nil && conn.IsConnected() {
		ch <- conn
	}

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) publish(conn *Conn) {
	m.mu.Lock()
	subs := make([]chan *Conn, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- conn:
		default:
			m.log.Warn("realtime: subscriber not keeping up, dropping handle notification")
		}
	}
}

// reconnect runs after dropped (the handle observed an unexpected drop).
// Attempts are bounded and backed off; an explicit Disconnect during the
// loop aborts it.
func (m *Manager) reconnect(dropped *Conn) {
	m.mu.Lock()
	if m.conn != dropped {
		// a newer handle took over already
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	delay := m.cfg.ReconnectDelay
	for attempt := 1; attempt <= m.cfg.MaxReconnects; attempt++ {
		time.Sleep(delay)
		delay *= 2

		m.mu.Lock()
		replaced := m.conn != dropped
		m.mu.Unlock()
		if replaced {
			return
		}

		token := m.store.GetString(constants.AuthTokenKey)
		if token == "" {
			m.log.Info("realtime: token gone, abandoning reconnection")
			return
		}

		m.log.Info("realtime: attempting to reconnect", "attempt", attempt)
		conn := NewConn(m.Endpoint(), token, m.log)
		conn.onDrop = func() { m.reconnect(conn) }
		if err := conn.Connect(context.Background()); err != nil {
			m.log.Warn("realtime: reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()
		m.publish(conn)
		m.log.Info("realtime: reconnected", "attempt", attempt)
		return
	}

	m.log.Error("realtime: giving up after max reconnection attempts", "attempts", m.cfg.MaxReconnects)
	m.mu.Lock()
	if m.conn == dropped {
		m.conn = nil
	}
	m.mu.Unlock()
}

// deriveEndpoint keeps the realtime and HTTP layers configuration-consistent:
// explicit override first, else the HTTP base with its API path stripped and
// the scheme switched to websocket, else the fallback.
func deriveEndpoint(socketURL, baseURL string) string {
	if socketURL != "" {
		return strings.TrimSuffix(socketURL, "/")
	}

	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
			switch u.Scheme {
			case "https":
				u.Scheme = "wss"
			default:
				u.Scheme = "ws"
			}
			u.Path = ""
			u.RawQuery = ""
			return u.String()
		}
	}

	return constants.DefaultSocketURL
}
