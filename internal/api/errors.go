package api

import (
	"fmt"
	"strings"
)

// ErrUnauthorized is returned when the API responds with 401 and the session
// could not be refreshed.
var ErrUnauthorized = fmt.Errorf("session expired. Run `skemmarize login`")

// ErrRateLimited is returned when the API responds with 429.
var ErrRateLimited = fmt.Errorf("rate limited. Wait and retry")

// ErrNetwork is the sentinel for network-level failures.
var ErrNetwork = fmt.Errorf("network error")

// ErrRefreshTimeout is returned when a request parked behind an in-flight
// credential refresh gives up waiting.
var ErrRefreshTimeout = fmt.Errorf("timed out waiting for credential refresh")

// IsNetworkError returns true if the error is a network connectivity error.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, keyword := range []string{"network error", "connection refused", "no such host", "timeout", "dial"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}
