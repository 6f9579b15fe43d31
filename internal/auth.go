package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// SessionFileName is the storage key for the persisted login session.
const SessionFileName = "session.json"

// AuthSession is the persisted login state. Token is an opaque bearer
// credential; the client never inspects it.
type AuthSession struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	Token    string `json:"token"`
	Ruolo    string `json:"ruolo"`
}

// NewAuthSession builds a session from a login result.
func NewAuthSession(result *LoginResult) *AuthSession {
	return &AuthSession{
		Username: result.Username,
		IsAdmin:  strings.EqualFold(result.Ruolo, "admin"),
		Token:    result.Token,
		Ruolo:    result.Ruolo,
	}
}

// LoadAuthSession reads the persisted session. Absent or corrupt data
// means logged out; decode errors are logged, never surfaced.
func LoadAuthSession(path string) *AuthSession {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Failed to read session: %v", err)
		}
		return nil
	}

	var session AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		LogWarn("Malformed session discarded: %v", err)
		return nil
	}
	if session.Token == "" {
		return nil
	}
	return &session
}

// SaveAuthSession persists the session.
func SaveAuthSession(path string, session *AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return &StorageError{Path: path, Op: "encode", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// ClearAuthSession removes the persisted session. Already logged out is
// not an error.
func ClearAuthSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	return nil
}
