package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manas-swain-001/cms-client/internal/fakeapi"
	"github.com/manas-swain-001/cms-client/pkg/logger"
)

func TestConnectDispatchesConnectEvents(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	conn := NewConn(srv.SocketURL(), srv.ValidToken, logger.Nop())

	var connected atomic.Bool
	var info ConnectedInfo
	conn.On(EventConnect, func(json.RawMessage) { connected.Store(true) })
	conn.On(EventConnected, func(data json.RawMessage) {
		require.NoError(t, json.Unmarshal(data, &info))
	})

	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	assert.True(t, connected.Load(), "connect fires before Connect returns")
	assert.Equal(t, "authenticated", info.Message)
	assert.Equal(t, "u1", info.User.ID)
	assert.NotEmpty(t, info.Timestamp)
}

func TestHandshakeRejection(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	conn := NewConn(srv.SocketURL(), "wrong-token", logger.Nop())

	var gotErr atomic.Bool
	conn.On(EventConnectError, func(json.RawMessage) { gotErr.Store(true) })

	err := conn.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, gotErr.Load())
	assert.False(t, conn.IsConnected())
}

func TestDialFailureDispatchesConnectError(t *testing.T) {
	conn := NewConn("ws://127.0.0.1:1", "tok", logger.Nop())

	var gotErr atomic.Bool
	conn.On(EventConnectError, func(json.RawMessage) { gotErr.Store(true) })

	require.Error(t, conn.Connect(context.Background()))
	assert.True(t, gotErr.Load())
}

func TestCloseIsIdempotentAndDispatchesDisconnect(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	conn := NewConn(srv.SocketURL(), srv.ValidToken, logger.Nop())

	var disconnects atomic.Int32
	conn.On(EventDisconnect, func(json.RawMessage) { disconnects.Add(1) })

	require.NoError(t, conn.Connect(context.Background()))
	require.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())

	assert.False(t, conn.IsConnected())
	assert.Equal(t, int32(1), disconnects.Load(), "disconnect fires exactly once")
}

func TestCloseNeverConnected(t *testing.T) {
	conn := NewConn("ws://127.0.0.1:1", "tok", logger.Nop())
	assert.NoError(t, conn.Close())
}

func TestEmitOnClosedConn(t *testing.T) {
	conn := NewConn("ws://127.0.0.1:1", "tok", logger.Nop())
	assert.Error(t, conn.Emit(EventNotification, map[string]any{"x": 1}))
}

func TestStateTransitions(t *testing.T) {
	s := StateDisconnected

	s, err := s.transitionTo(StateConnecting)
	require.NoError(t, err)
	s, err = s.transitionTo(StateConnected)
	require.NoError(t, err)
	s, err = s.transitionTo(StateDisconnected)
	require.NoError(t, err)

	_, err = s.transitionTo(StateConnected)
	assert.Error(t, err, "disconnected cannot jump straight to connected")
}
