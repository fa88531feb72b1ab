package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Entry names understood by the credential resolver.
const (
	NameAPIKey     = "api_key"
	NamePrivateKey = "private_key"
)

// lockTimeout bounds how long a write waits for another process holding the
// store lock.
var lockTimeout = 5 * time.Second

const lockRetryDelay = 50 * time.Millisecond

// Store persists credentials written by `molted auth login`. Reads are
// lock-free; writes hold the file lock so concurrent logins serialize.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

// Exists reports whether a store file is present at path. Commands that only
// read credentials use it to avoid creating an empty database.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func Open(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"CREATE TABLE IF NOT EXISTS credentials (name TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at INTEGER NOT NULL);",
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init store schema: %w", err)
		}
	}
	// Holds secrets.
	_ = os.Chmod(path, 0o600)

	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the stored value for name. A missing entry is not an error.
func (s *Store) Get(name string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, nil
	}
	var value string
	err := s.db.QueryRow("SELECT value FROM credentials WHERE name = ?", name).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store read: %w", err)
	}
	return value, true, nil
}

func (s *Store) Set(name, value string) error {
	return s.withLock(func() error {
		_, err := s.db.Exec(`
			INSERT INTO credentials (name, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				value=excluded.value,
				updated_at=excluded.updated_at
		`, name, value, time.Now().UTC().Unix())
		if err != nil {
			return fmt.Errorf("store write: %w", err)
		}
		return nil
	})
}

// Delete removes the named entries and reports how many existed.
func (s *Store) Delete(names ...string) (int, error) {
	removed := 0
	err := s.withLock(func() error {
		for _, name := range names {
			res, err := s.db.Exec("DELETE FROM credentials WHERE name = ?", name)
			if err != nil {
				return fmt.Errorf("store delete: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				removed += int(n)
			}
		}
		return nil
	})
	return removed, err
}

// Names lists stored entry names, never their values.
func (s *Store) Names() ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.Query("SELECT name FROM credentials")
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store list: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock store: timeout acquiring lock after %s", lockTimeout)
	}
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
