package client

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/eventcrm/apiserver/types"
)

// Session holds the bearer token and identity of an authenticated user.
type Session struct {
	Token string           `json:"token"`
	User  types.PublicUser `json:"user"`
}

// SessionStore persists the session to a JSON file so a client can rehydrate
// across restarts. Clearing the store is the client side of logout.
type SessionStore struct {
	path string
}

// NewSessionStore creates a store backed by the given file path.
func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// Load reads the persisted session. The second return is false when no
// session is stored.
func (s *SessionStore) Load() (Session, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false, err
	}
	if session.Token == "" {
		return Session{}, false, nil
	}
	return session, true, nil
}

// Save writes the session to disk, creating parent directories as needed.
func (s *SessionStore) Save(session Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the persisted session. A missing file is not an error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
