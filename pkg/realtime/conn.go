package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
)

// DefaultDialer is the gorilla dialer used by Conn, with compression enabled.
var DefaultDialer = &gorilla.Dialer{
	Proxy:             gorilla.DefaultDialer.Proxy,
	HandshakeTimeout:  gorilla.DefaultDialer.HandshakeTimeout,
	EnableCompression: true,
}

// handshakeTimeout bounds the wait for the server's connected reply.
const handshakeTimeout = 10 * time.Second

// Conn is a single-use realtime connection handle. It holds transport state
// only, never domain data. Once dropped it cannot be revived; the Manager
// dials a fresh handle instead.
type Conn struct {
	url   string
	token string
	log   logger.Logger

	ws     *gorilla.Conn
	wsLock sync.Mutex

	stateMu sync.Mutex
	state   State

	handlersMu sync.Mutex
	handlers   map[Event]map[int]Handler
	nextID     int

	identity Identity

	// onDrop is invoked once when the transport drops without an explicit
	// Close. Set by the Manager to drive reconnection.
	onDrop func()

	closeCh   chan struct{}
	closeOnce sync.Once
	explicit  bool
}

// NewConn builds an unconnected handle for the given endpoint and token.
func NewConn(endpoint, token string, log logger.Logger) *Conn {
	if log == nil {
		log = logger.Default()
	}
	return &Conn{
		url:      endpoint,
		token:    token,
		log:      log,
		state:    StateDisconnected,
		handlers: make(map[Event]map[int]Handler),
		closeCh:  make(chan struct{}),
	}
}

// Connect dials the endpoint, performs the credential handshake and starts
// the read loop. The connect and connected events are dispatched to handlers
// attached before Connect returns successfully.
func (c *Conn) Connect(ctx context.Context) error {
	if err := c.transition(StateConnecting); err != nil {
		return err
	}

	ws, resp, err := DefaultDialer.DialContext(ctx, c.url+"/socket", nil)
	if err != nil {
		c.mustTransition(StateDisconnected)
		c.dispatch(EventConnectError, errPayload(err))
		return err
	}
	if resp != nil {
		resp.Body.Close()
	}
	c.ws = ws

	info, err := c.handshake()
	if err != nil {
		c.mustTransition(StateDisconnected)
		c.dispatch(EventConnectError, errPayload(err))
		ws.Close()
		return err
	}

	c.identity = info.User
	c.mustTransition(StateConnected)

	c.dispatch(EventConnect, nil)
	if raw, err := json.Marshal(info); err == nil {
		c.dispatch(EventConnected, raw)
	}

	go c.readLoop()
	return nil
}

// handshake writes the auth frame and waits for the server's verdict. The
// token travels in the payload, not a header; nothing else is accepted
// before the server answers.
func (c *Conn) handshake() (*ConnectedInfo, error) {
	auth, err := json.Marshal(authPayload{Token: c.token})
	if err != nil {
		return nil, err
	}
	if err := c.write(frame{Event: "auth", Data: auth}); err != nil {
		return nil, err
	}

	if err := c.ws.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return nil, err
	}
	defer c.ws.SetReadDeadline(time.Time{}) //nolint:errcheck

	var reply frame
	if err := c.ws.ReadJSON(&reply); err != nil {
		return nil, fmt.Errorf("handshake read: %w", err)
	}

	switch reply.Event {
	case EventConnected:
		var info ConnectedInfo
		if err := json.Unmarshal(reply.Data, &info); err != nil {
			return nil, fmt.Errorf("handshake payload: %w", err)
		}
		return &info, nil
	case EventConnectError:
		return nil, fmt.Errorf("handshake rejected: %s", string(reply.Data))
	default:
		return nil, fmt.Errorf("unexpected handshake reply %q", reply.Event)
	}
}

// On attaches a handler and returns its id for later detachment.
func (c *Conn) On(event Event, h Handler) int {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.handlers[event][id] = h
	return id
}

// Off detaches a handler. Detaching an unknown id is a no-op.
func (c *Conn) Off(event Event, id int) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	delete(c.handlers[event], id)
}

// Emit sends an event frame to the server.
func (c *Conn) Emit(event Event, data any) error {
	if !c.IsConnected() {
		return constants.ErrClosed
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.write(frame{Event: event, Data: raw})
}

// Close tears the connection down explicitly. Idempotent. No reconnection
// is attempted afterwards.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.explicit = true
		close(c.closeCh)

		if c.ws != nil {
			msg := gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")
			c.wsLock.Lock()
			//nolint:errcheck // best effort, the close below is what matters
			c.ws.WriteMessage(gorilla.CloseMessage, msg)
			c.wsLock.Unlock()
			err = c.ws.Close()
		}

		if c.setDisconnected() {
			c.dispatch(EventDisconnect, nil)
		}
	})
	return err
}

// IsConnected reflects the transport's current connected flag.
func (c *Conn) IsConnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state == StateConnected
}

// Identity returns the authenticated user reported during the handshake.
func (c *Conn) Identity() Identity {
	return c.identity
}

func (c *Conn) readLoop() {
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}

		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.handleReadError(err)
			return
		}
		c.dispatch(f.Event, f.Data)
	}
}

func (c *Conn) handleReadError(err error) {
	select {
	case <-c.closeCh:
		// explicit Close already dispatched disconnect
		return
	default:
	}

	if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
		c.log.Info("realtime: server closed the connection")
	} else {
		c.log.Warn("realtime: connection dropped", "error", err)
	}

	if c.setDisconnected() {
		c.dispatch(EventDisconnect, nil)
		if c.onDrop != nil {
			c.onDrop()
		}
	}
}

// setDisconnected flips into the disconnected state, reporting whether this
// call did the flip.
func (c *Conn) setDisconnected() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == StateDisconnected {
		return false
	}
	c.state = StateDisconnected
	return true
}

func (c *Conn) dispatch(event Event, data json.RawMessage) {
	c.handlersMu.Lock()
	hs := make([]Handler, 0, len(c.handlers[event]))
	for _, h := range c.handlers[event] {
		hs = append(hs, h)
	}
	c.handlersMu.Unlock()

	for _, h := range hs {
		h(data)
	}
}

func (c *Conn) write(f frame) error {
	c.wsLock.Lock()
	defer c.wsLock.Unlock()
	return c.ws.WriteJSON(f)
}

func (c *Conn) transition(next State) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	s, err := c.state.transitionTo(next)
	if err != nil {
		return err
	}
	c.state = s
	return nil
}

func (c *Conn) mustTransition(next State) {
	if err := c.transition(next); err != nil {
		panic(fmt.Sprintf("BUG: %v", err))
	}
}

func errPayload(err error) json.RawMessage {
	raw, mErr := json.Marshal(map[string]string{"message": err.Error()})
	if mErr != nil {
		return nil
	}
	return raw
}
