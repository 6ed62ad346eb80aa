package cmsclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/manas-swain-001/cms-client/pkg/constants"
	"github.com/manas-swain-001/cms-client/pkg/logger"
	"github.com/manas-swain-001/cms-client/pkg/notify"
	"github.com/manas-swain-001/cms-client/pkg/realtime"
	"github.com/manas-swain-001/cms-client/pkg/request"
	"github.com/manas-swain-001/cms-client/pkg/store"
)

// Client is the root handle to the CMS backend: the request client, the
// realtime manager and the notification synchronizer, composed over one
// local store. Construct it once at application start.
type Client struct {
	cfg Config
	log logger.Logger

	store    *store.Store
	req      *request.Client
	rt       *realtime.Manager
	notifier *notify.Synchronizer
}

// Option adjusts client construction.
type Option func(*Client)

// WithLogger overrides the default stderr logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a Client from cfg. The notification synchronizer is created but
// not started; call Notifications().Start() to begin realtime ingestion.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.applyDefaults()

	c := &Client{cfg: cfg, log: logger.Default()}
	for _, opt := range opts {
		opt(c)
	}

	c.store = store.New(cfg.StorePath, cfg.StoreSecret, c.log)

	req, err := request.New(request.Config{
		BaseURL: cfg.BaseURL,
		Retries: cfg.Retries,
		Debug:   cfg.Debug,
	}, c.store, c.log)
	if err != nil {
		return nil, err
	}
	c.req = req

	c.rt = realtime.NewManager(realtime.Config{
		SocketURL: cfg.SocketURL,
		BaseURL:   cfg.BaseURL,
	}, c.store, c.log)
	realtime.SetDefault(c.rt)

	c.notifier = notify.New(c.rt, c.store, c.log)
	return c, nil
}

// Store exposes the local store.
func (c *Client) Store() *store.Store { return c.store }

// Requests exposes the underlying request client for endpoints the facade
// does not cover.
func (c *Client) Requests() *request.Client { return c.req }

// Realtime exposes the connection manager.
func (c *Client) Realtime() *realtime.Manager { return c.rt }

// Notifications exposes the synchronizer.
func (c *Client) Notifications() *notify.Synchronizer { return c.notifier }

// IsLoggedIn reports whether a session is persisted locally.
func (c *Client) IsLoggedIn() bool {
	return c.store.GetString(constants.AuthTokenKey) != ""
}

// Login authenticates, persists the session and connects the realtime
// channel. The realtime connection failing is not a login failure.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body, err := c.req.Post(ctx, "auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var data loginData
	if err := body.DecodeField("data", &data); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if data.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}

	c.store.SetItem(constants.AuthTokenKey, data.Token)
	c.store.SetItem(constants.UserDataKey, data.User)
	c.store.SetItem(constants.UserRoleKey, data.User.Role)
	c.store.SetItem(constants.LoggedInKey, true)

	if _, err := c.rt.Init(ctx); err != nil {
		c.log.Warn("realtime connection failed after login", "error", err)
	}

	return &data.User, nil
}

// Logout tears down the realtime connection and clears the persisted
// session keys.
func (c *Client) Logout() {
	c.rt.Disconnect()
	c.store.RemoveItem(constants.AuthTokenKey)
	c.store.RemoveItem(constants.UserDataKey)
	c.store.RemoveItem(constants.UserRoleKey)
	c.store.RemoveItem(constants.LoggedInKey)
}

// CurrentUser returns the locally persisted profile, nil when logged out.
func (c *Client) CurrentUser() *User {
	var u User
	if !c.store.Unmarshal(constants.UserDataKey, &u) || u.ID == "" {
		return nil
	}
	return &u
}

// Users lists all employees.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	body, err := c.req.Get(ctx, "users")
	if err != nil {
		return nil, err
	}
	var users []User
	if err := body.DecodeField("data", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// User fetches one employee by id.
func (c *Client) User(ctx context.Context, id string) (*User, error) {
	body, err := c.req.Get(ctx, "users/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var u User
	if err := body.DecodeField("data", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUser creates or updates an employee.
func (c *Client) SaveUser(ctx context.Context, u User) error {
	_, err := c.req.Post(ctx, "users/save", u)
	return err
}

// PunchIn records the start of the working day.
func (c *Client) PunchIn(ctx context.Context) (*AttendanceRecord, error) {
	return c.punch(ctx, "attendance/punch-in")
}

// PunchOut records the end of the working day.
func (c *Client) PunchOut(ctx context.Context) (*AttendanceRecord, error) {
	return c.punch(ctx, "attendance/punch-out")
}

func (c *Client) punch(ctx context.Context, path string) (*AttendanceRecord, error) {
	body, err := c.req.Post(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var rec AttendanceRecord
	if err := body.DecodeField("data", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TodayAttendance lists today's punch events.
func (c *Client) TodayAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	body, err := c.req.Get(ctx, "attendance/today")
	if err != nil {
		return nil, err
	}
	var recs []AttendanceRecord
	if err := body.DecodeField("data", &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Tasks lists tasks, optionally filtered by assignee.
func (c *Client) Tasks(ctx context.Context, userID string) ([]Task, error) {
	opts := []request.CallOption{}
	if userID != "" {
		opts = append(opts, request.WithParams(url.Values{"userId": {userID}}))
	}
	body, err := c.req.Get(ctx, "tasks", opts...)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	if err := body.DecodeField("data", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// SaveTask creates or updates a task.
func (c *Client) SaveTask(ctx context.Context, t Task) error {
	_, err := c.req.Post(ctx, "tasks/save", t)
	return err
}

// UpdateTaskStatus moves a task to a new status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id, status string) error {
	_, err := c.req.Put(ctx, "tasks/"+url.PathEscape(id)+"/status", map[string]string{"status": status})
	return err
}

// SendSalarySMS triggers the salary notification batch for a month.
func (c *Client) SendSalarySMS(ctx context.Context, month string) error {
	_, err := c.req.Post(ctx, "sms/salary", map[string]string{"month": month})
	return err
}

// SendGreetingSMS triggers a greeting broadcast for an occasion.
func (c *Client) SendGreetingSMS(ctx context.Context, occasion string) error {
	_, err := c.req.Post(ctx, "sms/greeting", map[string]string{"occasion": occasion})
	return err
}

// DashboardSummary fetches the landing-page counters.
func (c *Client) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	body, err := c.req.Get(ctx, "dashboard/summary")
	if err != nil {
		return nil, err
	}
	var sum DashboardSummary
	if err := body.DecodeField("data", &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}
