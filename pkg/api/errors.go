package api

import (
	"errors"
	"fmt"
	"strings"
)

// RemoteRequestFailedError is returned when an endpoint answers with a
// non-success status. Body holds the portal's error text verbatim, up to
// the first 4096 bytes; Truncated is set when the body was longer.
type RemoteRequestFailedError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Truncated  bool
}

func (e *RemoteRequestFailedError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s request failed with status %d", e.Endpoint, e.StatusCode)
	}
	if e.Truncated {
		body += " ... (truncated)"
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Endpoint, e.StatusCode, body)
}

// IsRemoteFailure reports whether err is, or wraps, a RemoteRequestFailedError.
func IsRemoteFailure(err error) bool {
	var remote *RemoteRequestFailedError
	return errors.As(err, &remote)
}
