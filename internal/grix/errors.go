package grix

import (
	"errors"
	"fmt"
)

// ErrUnexpectedShape marks a 2xx response whose body is not the documented shape.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// UpstreamFetchError wraps any failure of an upstream call: transport errors,
// non-2xx responses and undecodable bodies. StatusCode is zero when no
// response was received.
type UpstreamFetchError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("grix %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("grix %s: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 256))
	default:
		return fmt.Sprintf("grix %s: %v", e.Op, e.Err)
	}
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
