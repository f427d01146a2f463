package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const sessionFilename = "session.json"

// FileStore keeps the session in a JSON file under a data directory.
// Field names mirror the fixed storage keys the backend's web client
// uses, so the file stays recognizable next to it.
type FileStore struct {
	path string
}

type persistedSession struct {
	User   string `json:"user"`
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// NewFileStore creates the data directory if missing.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.TrimSpace(dataDir) == "" {
		return nil, fmt.Errorf("session: data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dataDir, sessionFilename)}, nil
}

func (f *FileStore) Save(s Session) error {
	data, err := json.Marshal(persistedSession{
		User:   s.Username,
		Token:  s.Token,
		UserID: s.UserID,
	})
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var p persistedSession
	if err := json.Unmarshal(data, &p); err != nil {
		return Session{}, fmt.Errorf("parse session: %w", err)
	}
	return Session{UserID: p.UserID, Username: p.User, Token: p.Token}, nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
