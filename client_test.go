package cmsclient

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manas-swain-001/cms-client/internal/fakeapi"
	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
	"github.com/manas-swain-001/cms-client/pkg/request"
)

func newTestClient(t *testing.T) (*Client, *fakeapi.Server) {
	t.Helper()

	srv := fakeapi.New()
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:   srv.BaseURL(),
		SocketURL: srv.SocketURL(),
		StorePath: filepath.Join(t.TempDir(), "store.bin"),
	}, WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(c.Logout)
	return c, srv
}

func login(t *testing.T, c *Client) *User {
	t.Helper()
	u, err := c.Login(context.Background(), "asha@example.com", "secret")
	require.NoError(t, err)
	return u
}

func TestLoginPersistsSessionAndConnects(t *testing.T) {
	c, srv := newTestClient(t)

	u := login(t, c)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "admin", u.Role)

	assert.Equal(t, srv.ValidToken, c.Store().GetString(constants.AuthTokenKey))
	assert.Equal(t, "admin", c.Store().GetString(constants.UserRoleKey))
	assert.Equal(t, true, c.Store().GetItem(constants.LoggedInKey))
	assert.True(t, c.IsLoggedIn())

	require.NotNil(t, c.CurrentUser())
	assert.Equal(t, "Asha Rao", c.CurrentUser().Name)

	assert.Eventually(t, func() bool {
		return c.Realtime().IsConnected()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoginRejection(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Login(context.Background(), "asha@example.com", "wrong")
	require.Error(t, err)

	var apiErr *request.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)
	assert.False(t, c.IsLoggedIn())
}

func TestLogoutClearsSessionAndSocket(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	c.Logout()

	for _, key := range []string{
		constants.AuthTokenKey, constants.UserDataKey,
		constants.UserRoleKey, constants.LoggedInKey,
	} {
		assert.False(t, c.Store().HasItem(key), "key %s", key)
	}
	assert.False(t, c.Realtime().IsConnected())
	assert.Nil(t, c.Realtime().Current())
	assert.Nil(t, c.CurrentUser())

	c.Logout() // second logout must be harmless
}

func TestUsers(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	users, err := c.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Asha Rao", users[0].Name)

	u, err := c.User(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "Ravi Iyer", u.Name)

	require.NoError(t, c.SaveUser(context.Background(), User{ID: "u3", Name: "Meera Shah", Role: "employee"}))
	users, err = c.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestAttendance(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	rec, err := c.PunchIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "in", rec.Direction)
	assert.NotEmpty(t, rec.Time)

	_, err = c.PunchOut(context.Background())
	require.NoError(t, err)

	today, err := c.TodayAttendance(context.Background())
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, "out", today[1].Direction)
}

func TestTasks(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	require.NoError(t, c.SaveTask(context.Background(), Task{ID: "t1", UserID: "u2", Title: "File report", Status: "open"}))
	require.NoError(t, c.SaveTask(context.Background(), Task{ID: "t2", UserID: "u1", Title: "Review payroll", Status: "open"}))

	tasks, err := c.Tasks(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "File report", tasks[0].Title)

	require.NoError(t, c.UpdateTaskStatus(context.Background(), "t1", "done"))
	tasks, err = c.Tasks(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "done", tasks[0].Status)
}

func TestSMSAndDashboard(t *testing.T) {
	c, _ := newTestClient(t)
	login(t, c)

	require.NoError(t, c.SendSalarySMS(context.Background(), "2026-06"))
	require.NoError(t, c.SendGreetingSMS(context.Background(), "diwali"))

	sum, err := c.DashboardSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Employees)
}

func TestUnauthenticatedCallFails(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Users(context.Background())
	var apiErr *request.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestNotificationsEndToEnd(t *testing.T) {
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

	c.Notifications().MarkAllAsRead()
	assert.Equal(t, 0, c.Notifications().UnreadCount())
}
