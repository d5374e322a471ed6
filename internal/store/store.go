// Package store keeps privacy-conscious visitor analytics in SQLite. Raw
// IP addresses are never stored, only salted hashes.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Retention is how long visitor records are kept.
const Retention = 365 * 24 * time.Hour

// Interaction kinds.
const (
	KindModalOpen = "modal_open"
	KindFilter    = "filter"
)

type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// Open opens or creates the database at path. ":memory:" opens an in-memory
// database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "creating database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}

	// One connection: sqlite serializes writers, and each :memory:
	// connection would otherwise be its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "setting busy timeout")
	}

	salt, err := newSalt()
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, salt: salt, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "running migrations")
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT,
			path TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_ts ON visitors(ts)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			project_id TEXT,
			tag TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_kind ON interactions(kind, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func newSalt() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating salt")
	}
	return hex.EncodeToString(b), nil
}

// HashIP returns a salted, truncated hash of ip. The same ip hashes the
// same way for the life of the process.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

type Visit struct {
	IP        string
	UserAgent string
	Path      string
}

type Interaction struct {
	Kind      string
	ProjectID string
	Tag       string
}

func (s *Store) RecordVisit(ctx context.Context, v Visit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, ts) VALUES (?, ?, ?, ?)`,
		s.HashIP(v.IP), v.UserAgent, v.Path, s.now().Unix())
	return errors.Wrap(err, "recording visit")
}

func (s *Store) RecordInteraction(ctx context.Context, i Interaction) error {
	if i.Kind == "" {
		return errors.New("interaction kind is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (kind, project_id, tag, ts) VALUES (?, ?, ?, ?)`,
		i.Kind, i.ProjectID, i.Tag, s.now().Unix())
	return errors.Wrap(err, "recording interaction")
}

// Cleanup removes visitor and interaction records older than olderThan and
// returns how many rows were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).Unix()
	var total int64
	for _, table := range []string{"visitors", "interactions"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE ts < ?`, cutoff)
		if err != nil {
			return total, errors.Wrapf(err, "cleaning up %s", table)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
