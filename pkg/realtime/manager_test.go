package realtime

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manas-swain-001/cms-client/internal/fakeapi"
	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
	"github.com/manas-swain-001/cms-client/pkg/store"
)

func newTestManager(t *testing.T, srv *fakeapi.Server) (*Manager, *store.Store) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "store.bin"), "secret", logger.Nop())
	mgr := NewManager(Config{
		SocketURL:      srv.SocketURL(),
		MaxReconnects:  3,
		ReconnectDelay: 20 * time.Millisecond,
	}, st, logger.Nop())
	t.Cleanup(mgr.Disconnect)
	return mgr, st
}

func TestInitWithoutTokenDoesNotConnect(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, _ := newTestManager(t, srv)
	conn, err := mgr.Init(context.Background())
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, constants.ErrNoAuthToken)
	assert.Equal(t, 0, srv.ClientCount())
	assert.Nil(t, mgr.Current())
}

func TestInitConnectsAndIsIdempotent(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	conn, err := mgr.Init(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, mgr.IsConnected())
	assert.Equal(t, "u1", conn.Identity().ID)
	assert.Equal(t, "admin", conn.Identity().Role)

	again, err := mgr.Init(context.Background())
	require.NoError(t, err)
	assert.Same(t, conn, again, "a live handle is reused, not re-dialed")
	assert.Equal(t, 1, srv.ClientCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	_, err := mgr.Init(context.Background())
	require.NoError(t, err)

	mgr.Disconnect()
	assert.Nil(t, mgr.Current())
	assert.False(t, mgr.IsConnected())

	mgr.Disconnect()
	assert.Nil(t, mgr.Current())
}

func TestNotificationDispatch(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	conn, err := mgr.Init(context.Background())
	require.NoError(t, err)

	got := make(chan string, 1)
	conn.On(EventNotification, func(data json.RawMessage) {
		got <- string(data)
	})

	srv.PushNotification(map[string]any{"id": "n1", "title": "Punch reminder"})

	select {
	case payload := <-got:
		assert.Contains(t, payload, `"n1"`)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never delivered")
	}
}

func TestListenerDetach(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	conn, err := mgr.Init(context.Background())
	require.NoError(t, err)

	var calls atomic.Int32
	id := conn.On(EventNotification, func(json.RawMessage) { calls.Add(1) })
	conn.Off(EventNotification, id)
	conn.Off(EventNotification, id) // unknown id is a no-op

	srv.PushNotification(map[string]any{"id": "n1"})
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestReconnectAfterDrop(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	conns, cancel := mgr.Subscribe()
	defer cancel()

	first, err := mgr.Init(context.Background())
	require.NoError(t, err)
	require.Same(t, first, <-conns)

	srv.DropClients()

	select {
	case second := <-conns:
		assert.NotSame(t, first, second, "reconnection produces a fresh handle")
		assert.True(t, second.IsConnected())
		assert.Same(t, second, mgr.Current())
	case <-time.After(3 * time.Second):
		t.Fatal("never reconnected")
	}
}

func TestReconnectGivesUpAfterMaxAttempts(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	_, err := mgr.Init(context.Background())
	require.NoError(t, err)

	srv.RejectHandshake = true
	srv.DropClients()

	assert.Eventually(t, func() bool {
		return mgr.Current() == nil
	}, 3*time.Second, 20*time.Millisecond, "handle must be cleared after giving up")
}

func TestSubscribeDeliversCurrentHandle(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	mgr, st := newTestManager(t, srv)
	st.SetItem(constants.AuthTokenKey, srv.ValidToken)

	conn, err := mgr.Init(context.Background())
	require.NoError(t, err)

	// subscribing after the fact still observes the live handle
	conns, cancel := mgr.Subscribe()
	defer cancel()

	select {
	case got := <-conns:
		assert.Same(t, conn, got)
	case <-time.After(time.Second):
		t.Fatal("current handle not delivered")
	}
}

func TestDeriveEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		socketURL string
		baseURL   string
		want      string
	}{
		{"explicit override", "ws://rt.example.com", "http://api.example.com/api", "ws://rt.example.com"},
		{"derived from base, api path stripped", "", "http://api.example.com:5000/api", "ws://api.example.com:5000"},
		{"https becomes wss", "", "https://api.example.com/api/v1", "wss://api.example.com"},
		{"fallback", "", "", constants.DefaultSocketURL},
		{"unparseable base falls back", "", "://bad", constants.DefaultSocketURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deriveEndpoint(tc.socketURL, tc.baseURL))
		})
	}
}
