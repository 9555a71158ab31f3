package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSummarizeRefreshesExpiredToken runs the whole pipeline against a real
// server: the first upload is rejected with 401, the client refreshes once
// and the replay succeeds without the caller noticing.
func TestSummarizeRefreshesExpiredToken(t *testing.T) {
	t.Parallel()

	var refreshCalls int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathAuthRefresh:
			atomic.AddInt64(&refreshCalls, 1)

			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "refresh-1", req.RefreshToken)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"access_token":  "fresh",
					"refresh_token": "refresh-2",
					"token_type":    "bearer",
					"expires_at":    time.Now().Add(time.Hour).Format(time.RFC3339),
				},
			})

		case PathSummaries:
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("image")
			require.NoError(t, err)
			defer file.Close()
			require.Equal(t, "cat.png", header.Filename)
			require.Equal(t, "Summarize this image.", r.FormValue("prompt"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"id":         "s-1",
					"image_name": "cat.png",
					"prompt":     r.FormValue("prompt"),
					"text":       "A cat on a sofa.",
				},
			})

		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sessions := &fakeSessions{access: "stale", refresh: "refresh-1"}
	client := NewClient(srv.URL, 5, sessions)

	summary, err := client.Summarize(context.Background(), SummarizeRequest{
		ImageName:   "cat.png",
		ContentType: "image/png",
		Image:       []byte{0x89, 'P', 'N', 'G'},
		Prompt:      "Summarize this image.",
	})
	require.NoError(t, err)
	require.Equal(t, "A cat on a sofa.", summary.Text)
	require.EqualValues(t, 1, atomic.LoadInt64(&refreshCalls))
	require.Equal(t, "refresh-2", sessions.RefreshToken(), "refresh token rotates")
}

// TestRejectedRefreshEndsSession: when the refresh credential is also
// rejected the caller sees ErrUnauthorized and the session is gone.
func TestRejectedRefreshEndsSession(t *testing.T) {
	t.Parallel()

	var refreshCalls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == PathAuthRefresh {
			atomic.AddInt64(&refreshCalls, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sessions := &fakeSessions{access: "stale", refresh: "dead"}
	client := NewClient(srv.URL, 5, sessions)

	var expired int64
	client.OnSessionExpired(func() { atomic.AddInt64(&expired, 1) })

	_, err := client.Get(context.Background(), PathSummaries)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualValues(t, 1, atomic.LoadInt64(&refreshCalls), "no recursive refresh")
	require.EqualValues(t, 1, atomic.LoadInt64(&expired))
	require.Empty(t, sessions.AccessToken())
}

func TestLoginParsesWrappedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, PathAuthLogin, r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "user@example.com", req["email"])
		require.Equal(t, "hunter2", req["password"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"access_token":  "a1",
				"refresh_token": "r1",
				"token_type":    "bearer",
				"user": map[string]any{
					"email":        "user@example.com",
					"display_name": "User",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5, &fakeSessions{})

	login, err := client.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "a1", login.AccessToken)
	require.Equal(t, "r1", login.RefreshToken)
	require.Equal(t, "User", login.User.DisplayName)
}

func TestLoginParsesFlatResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "a1",
			"refresh_token": "r1",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5, &fakeSessions{})

	login, err := client.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "a1", login.AccessToken)
}

// TestLogoutRevokesThroughAuthPipeline: the revocation POST rides the
// refreshing transport, so even an expired access token gets renewed before
// the refresh token is revoked.
func TestLogoutRevokesThroughAuthPipeline(t *testing.T) {
	t.Parallel()

	var refreshCalls, revoked int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case PathAuthRefresh:
			atomic.AddInt64(&refreshCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "fresh",
				"refresh_token": "refresh-2",
			})

		case PathAuthLogout:
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			// The replayed body still carries the token the call started with.
			require.Equal(t, "refresh-1", req.RefreshToken)
			atomic.AddInt64(&revoked, 1)
			w.WriteHeader(http.StatusNoContent)

		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	sessions := &fakeSessions{access: "stale", refresh: "refresh-1"}
	client := NewClient(srv.URL, 5, sessions)

	require.NoError(t, client.Logout(context.Background()))
	require.EqualValues(t, 1, atomic.LoadInt64(&refreshCalls))
	require.EqualValues(t, 1, atomic.LoadInt64(&revoked))
}

// TestSetRefreshTimeoutExtendsDeadline: the client deadline must outlast a
// configured waiter timeout, or a hung refresh would surface as a transport
// error instead of the 401 path.
func TestSetRefreshTimeoutExtendsDeadline(t *testing.T) {
	t.Parallel()

	client := NewClient("https://api.test", 5, &fakeSessions{})
	require.Equal(t, 5*time.Second+defaultRefreshTimeout, client.httpClient.Timeout)

	client.SetRefreshTimeout(45 * time.Second)
	require.Equal(t, 45*time.Second, client.transport.RefreshTimeout)
	require.Equal(t, 50*time.Second, client.httpClient.Timeout)
}

func TestStatusCodeMapping(t *testing.T) {
	t.Parallel()

	status := int64(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadInt64(&status)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5, &fakeSessions{access: "tok", refresh: "r"})

	_, err := client.Get(context.Background(), PathSummaries)
	require.ErrorIs(t, err, ErrRateLimited)

	atomic.StoreInt64(&status, http.StatusInternalServerError)
	_, err = client.Get(context.Background(), PathSummaries)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorized)
	require.Contains(t, err.Error(), "API error 500")
}

func TestUnauthenticatedCallFailsFast(t *testing.T) {
	t.Parallel()

	client := NewClient("https://api.invalid", 5, &fakeSessions{})

	_, err := client.Get(context.Background(), PathSummaries)
	require.Error(t, err)
	require.Contains(t, err.Error(), "skemmarize login")
}

func TestListSummariesParsesListShapes(t *testing.T) {
	t.Parallel()

	wrapped := int64(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		list := []map[string]any{
			{"id": "s-1", "image_name": "cat.png", "text": "A cat."},
			{"id": "s-2", "image_name": "dog.png", "text": "A dog."},
		}
		if atomic.LoadInt64(&wrapped) == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": list})
			return
		}
		_ = json.NewEncoder(w).Encode(list)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5, &fakeSessions{access: "tok", refresh: "r"})

	summaries, err := client.ListSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "A dog.", summaries[1].Text)

	atomic.StoreInt64(&wrapped, 1)
	summaries, err = client.ListSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	require.Equal(t, "s-1", summaries[0].ID)
}
