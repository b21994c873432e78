package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	sessionFile = "session.json"
)

// SessionState is the CLI's current conversation, resumed by "graphchat chat"
// and "graphchat ask" until cleared.
type SessionState struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// NewSessionState starts a conversation with a random id.
func NewSessionState() *SessionState {
	return &SessionState{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// LoadSession loads the session state from a target .graphchat/session.json.
// Returns nil, nil if no session has been started.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadSession(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}
	if state.ID == "" {
		return nil, errors.New("session state has no id")
	}

	return state, nil
}

// SaveSession persists the session state to a target .graphchat/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// CurrentSession returns the saved session, starting and saving a new one
// when none exists.
func (m *Manager) CurrentSession(overrideDir string) (*SessionState, error) {
	state, err := m.LoadSession(overrideDir)
	if err != nil || state != nil {
		return state, err
	}

	state = NewSessionState()
	if err := m.SaveSession(state, overrideDir); err != nil {
		return nil, err
	}
	return state, nil
}

// ClearSession removes the session state file so the next command starts a
// new conversation. Returns nil if the file doesn't exist.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}

// ResolveSession picks the session a command talks in: an explicit id wins,
// otherwise the saved session is used, replaced first when fresh is set.
func (m *Manager) ResolveSession(explicit string, fresh bool, overrideDir string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if fresh {
		if err := m.ClearSession(overrideDir); err != nil {
			return "", err
		}
	}
	state, err := m.CurrentSession(overrideDir)
	if err != nil {
		return "", err
	}
	return state.ID, nil
}
