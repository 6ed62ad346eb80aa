package constants

import "time"

const (
	// AuthTokenKey is the store key holding the bearer token.
	AuthTokenKey = "authToken"
	// UserDataKey is the store key holding the logged-in user's profile.
	UserDataKey = "userData"
	// UserRoleKey is the store key holding the logged-in user's role.
	UserRoleKey = "userRole"
	// LoggedInKey is the store key holding the login flag.
	LoggedInKey = "isLoggedIn"
	// NotificationsKey is the store key holding the persisted notification list.
	NotificationsKey = "notifications"
)

const (
	// DefaultRetries is the retry budget of the request client.
	DefaultRetries = 1
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay = 300 * time.Millisecond

	// MaxReconnectAttempts bounds the realtime reconnection loop.
	MaxReconnectAttempts = 5
	// ReconnectBaseDelay is the first reconnection delay; it doubles per attempt.
	ReconnectBaseDelay = time.Second

	// MaxNotifications caps the retained notification list.
	MaxNotifications = 100
	// HandlePollInterval is the legacy fallback interval for waiting on a
	// live connection handle.
	HandlePollInterval = 2 * time.Second
)

const (
	// DefaultAPIBaseURL is used when no base URL is configured.
	DefaultAPIBaseURL = "http://localhost:5000/api"
	// DefaultSocketURL is the realtime endpoint of last resort.
	DefaultSocketURL = "ws://localhost:5000"

	// RequestIDLength is the length of generated fallback ids.
	RequestIDLength = 16
)
