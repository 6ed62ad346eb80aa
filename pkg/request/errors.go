package request

import "fmt"

// APIError is the uniform error shape produced whether the failure came from
// an HTTP status or an application-level success:false envelope. A pure
// network failure is never wrapped in an APIError; it propagates as the
// transport's own error so callers can tell "never reached the server" from
// "server said no".
type APIError struct {
	Status  int
	Message string
	Data    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}
