package cmsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestZZDebugEndToEnd(t *testing.T) {
	c, srv := newTestClient(t)
	login(t, c)

	c.Notifications().Start()
	defer c.Notifications().Stop()

	require.Eventually(t, func() bool {
		return c.Realtime().IsConnected()
	}, 2*time.Second, 10*time.Millisecond)

	srv.PushNotification(map[string]any{"id": "n1", "title": "Punch reminder", "type": "attendance"})

	require.Eventually(t, func() bool {
		return c.Notifications().UnreadCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
