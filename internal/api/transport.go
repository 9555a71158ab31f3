package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// defaultRefreshTimeout bounds how long a request parked behind an in-flight
// refresh will wait before failing with ErrRefreshTimeout.
const defaultRefreshTimeout = 30 * time.Second

// SessionProvider supplies and persists credentials. Implemented by
// auth.SessionStore; an interface here avoids an import cycle between the
// api and auth packages.
type SessionProvider interface {
	AccessToken() string
	RefreshToken() string
	UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error
	Clear() error
}

// refreshOutcome is the terminal result of one refresh cycle, delivered to
// every request that was parked behind it.
type refreshOutcome struct {
	err error
}

// AuthTransport is an http.RoundTripper that attaches the session's access
// token to every request and transparently refreshes it when the backend
// answers 401.
//
// Refresh is single-flight: when several requests fail with 401 while a
// refresh is already running, exactly one refresh call goes out; the other
// requests park in a FIFO queue and are released with the shared outcome.
// On success each parked request re-sends its original request once with the
// fresh token; on failure each surfaces its original 401 and the session is
// cleared exactly once.
//
// A 401 from the refresh endpoint itself never triggers another refresh.
type AuthTransport struct {
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Sessions supplies the access token and is cleared on terminal failure.
	Sessions SessionProvider

	// Refresh exchanges the stored refresh token for a new pair and persists
	// it. It must not send through this transport, or a failing refresh
	// would recurse.
	Refresh func(ctx context.Context) error

	// OnSessionExpired fires after the session is cleared on terminal
	// failure. The composition root wires the login redirect here.
	OnSessionExpired func()

	// RefreshTimeout bounds the wait for an in-flight refresh.
	// Zero means defaultRefreshTimeout.
	RefreshTimeout time.Duration

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req, req.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if strings.HasSuffix(req.URL.Path, PathAuthRefresh) {
		// The refresh credential itself was rejected. Terminal: end the
		// session and surface the 401 unchanged.
		t.expireSession()
		return resp, nil
	}

	outcome := t.awaitRefresh(req.Context())
	if outcome.err != nil {
		return resp, nil
	}

	body, ok := replayBody(req)
	if !ok {
		// Body cannot be re-read; the caller gets the original 401.
		return resp, nil
	}

	// Drop the 401 response before re-sending so the connection can be
	// reused.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return t.send(req, body)
}

// send clones the request, attaches the current access token and forwards it
// to the base transport. The clone leaves the caller's request untouched.
func (t *AuthTransport) send(req *http.Request, body io.ReadCloser) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Body = body
	if token := t.Sessions.AccessToken(); token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base().RoundTrip(clone)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// awaitRefresh joins the current refresh cycle, starting one if none is in
// flight, and blocks until the cycle resolves.
func (t *AuthTransport) awaitRefresh(ctx context.Context) refreshOutcome {
	// Buffered so the drain never blocks on a waiter that gave up.
	ch := make(chan refreshOutcome, 1)

	t.mu.Lock()
	leader := !t.refreshing
	t.refreshing = true
	t.waiters = append(t.waiters, ch)
	t.mu.Unlock()

	if leader {
		err := t.Refresh(ctx)
		if err != nil {
			t.expireSession()
		}
		t.finish(err)
	}

	timeout := t.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		return outcome
	case <-ctx.Done():
		return refreshOutcome{err: ctx.Err()}
	case <-timer.C:
		return refreshOutcome{err: ErrRefreshTimeout}
	}
}

// finish resets the cycle to idle and releases the parked requests in the
// order their failures were observed. The leader's channel is first in the
// slice, so it is released first. Ordering holds at the dispatch point:
// the buffered sends below happen in queue order, but the woken goroutines
// replay as independent requests and may complete in any order.
func (t *AuthTransport) finish(err error) {
	t.mu.Lock()
	waiters := t.waiters
	t.waiters = nil
	t.refreshing = false
	t.mu.Unlock()

	outcome := refreshOutcome{err: err}
	for _, ch := range waiters {
		ch <- outcome
	}
}

// expireSession clears local credentials and fires the expiry hook.
func (t *AuthTransport) expireSession() {
	if t.Sessions != nil {
		_ = t.Sessions.Clear()
	}
	if t.OnSessionExpired != nil {
		t.OnSessionExpired()
	}
}

// replayBody produces a fresh body reader for re-sending the request.
// Returns false when the body was consumed and cannot be rebuilt.
func replayBody(req *http.Request) (io.ReadCloser, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req.Body, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	return body, true
}
