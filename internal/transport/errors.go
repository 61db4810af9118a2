package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// StatusError is a non-2xx response from a reachable server. It is never
// produced for connection-level failures, so callers can tell a server
// rejection apart from a network-class failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// IsNetworkError reports whether err means the request never reached a
// server: connection refused, DNS failure, timeout, aborted transfer. A
// *StatusError is never network-class, by definition.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// expectedEmpty reports whether a read-endpoint status is an auth-warm-up
// state that maps to "no data yet" rather than an error.
func expectedEmpty(status int) bool {
	return status == 401 || status == 403 || status == 404
}
