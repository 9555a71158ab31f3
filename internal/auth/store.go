package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/skemmarize/skemmarize-cli/internal/config"
)

// Session is the structure stored in ~/.skemmarize/session.json.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Endpoint     string    `json:"endpoint"`
}

// SessionStore manages reading and writing the session from disk.
// It implements api.SessionProvider.
type SessionStore struct {
	mu   sync.RWMutex
	path string
}

// NewSessionStore creates a SessionStore pointing at ~/.skemmarize/session.json.
func NewSessionStore() *SessionStore {
	return &SessionStore{path: config.SessionPath()}
}

// NewSessionStoreAt creates a SessionStore backed by an explicit file path.
func NewSessionStoreAt(path string) *SessionStore {
	return &SessionStore{path: path}
}

// AccessToken returns the current access token, or "" if not authenticated.
// Implements api.SessionProvider.
func (s *SessionStore) AccessToken() string {
	session := s.Load()
	if session == nil {
		return ""
	}
	return session.AccessToken
}

// RefreshToken returns the current refresh token, or "" if not authenticated.
// Implements api.SessionProvider.
func (s *SessionStore) RefreshToken() string {
	session := s.Load()
	if session == nil {
		return ""
	}
	return session.RefreshToken
}

// Load reads the session from disk. Returns nil if none exists.
func (s *SessionStore) Load() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}
	return &session
}

// Save writes the session to disk.
func (s *SessionStore) Save(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(session)
}

// UpdateTokens rotates the stored token pair after a refresh, keeping the
// user profile fields intact. Implements api.SessionProvider.
func (s *SessionStore) UpdateTokens(accessToken, refreshToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.read()
	if session == nil {
		session = &Session{}
	}
	session.AccessToken = accessToken
	if refreshToken != "" {
		session.RefreshToken = refreshToken
	}
	session.ExpiresAt = expiresAt
	return s.write(session)
}

// Clear removes the stored session. Idempotent: clearing an absent session
// is not an error. Implements api.SessionProvider.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// read loads the session without locking. Callers hold s.mu.
func (s *SessionStore) read() *Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}
	return &session
}

// write persists the session without locking. Callers hold s.mu.
func (s *SessionStore) write(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}
