package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const (
	keyUser   = "user"
	keyToken  = "token"
	keyUserID = "userId"
)

// SQLiteStore keeps the session in a small key/value table. Same fixed
// key names as the file store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(sess Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for name, value := range map[string]string{
		keyUser:   sess.Username,
		keyToken:  sess.Token,
		keyUserID: sess.UserID,
	} {
		if _, err := tx.Exec(
			`INSERT INTO session (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, value,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load() (Session, error) {
	rows, err := s.db.Query(`SELECT name, value FROM session`)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()
	var sess Session
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Session{}, err
		}
		switch name {
		case keyUser:
			sess.Username = value
		case keyToken:
			sess.Token = value
		case keyUserID:
			sess.UserID = value
		}
	}
	return sess, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session`)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
