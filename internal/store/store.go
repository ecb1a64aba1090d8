package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store is the local persistent key/value file backing the tiered cache and
// the lockout state. The remote sheet stays the source of truth for
// everything else; this file is disposable.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite file under dir.
// Возвращает вторым значением путь к файлу БД.
func Open(dir string) (*Store, string, error) {
	if dir == "" {
		return nil, "", errors.New("empty data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, "fleetstock.sqlite")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", err
	}
	return &Store{db: db}, dbPath, nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate ensures the single required table exists.
func (s *Store) Migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  stored_at INTEGER NOT NULL
);
`
	_, err := s.db.Exec(ddl)
	return err
}

// Get returns the stored value and its insertion time (unix ms). ok is false
// when the key is absent.
func (s *Store) Get(key string) (value []byte, storedAt int64, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value, stored_at FROM kv WHERE key = ?`, key).Scan(&value, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	return value, storedAt, true, nil
}

// Put upserts a value with the given insertion timestamp (unix ms).
func (s *Store) Put(key string, value []byte, storedAt int64) error {
	_, err := s.db.Exec(`INSERT INTO kv(key, value, stored_at) VALUES(?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`,
		key, value, storedAt)
	return err
}

// Delete removes the given keys; missing keys are not an error.
func (s *Store) Delete(keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return err
		}
	}
	return nil
}
