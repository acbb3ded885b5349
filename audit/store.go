package audit

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// currentSchemaVersion is the latest schema version. Increment when adding
// migrations.
const currentSchemaVersion = 1

// Store provides database operations for the audit trail.
type Store struct {
	db   *sql.DB
	salt string
}

// NewStore opens (or creates) the audit database at path, runs migrations,
// and loads or generates the per-installation IP-hash salt.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
	`); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.initSalt(); err != nil {
		return nil, fmt.Errorf("init salt: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			actor TEXT NOT NULL,
			detail TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
		CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// migrate applies incremental schema migrations based on a version stored
// in the settings table.
func (s *Store) migrate() error {
	verStr, err := s.getSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version < currentSchemaVersion {
		version = currentSchemaVersion
	}
	return s.setSetting("schema_version", strconv.Itoa(version))
}

// initSalt loads the persistent IP-hash salt, generating one on first run.
func (s *Store) initSalt() error {
	salt, err := s.getSetting("hash_salt")
	if err != nil {
		return err
	}
	if salt == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(b)
		if err := s.setSetting("hash_salt", salt); err != nil {
			return err
		}
	}
	s.salt = salt
	return nil
}

func (s *Store) getSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return val, err
}

func (s *Store) setSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Record appends an entry, hashing the IP before storage.
func (s *Store) Record(kind, actor, detail, ip string) error {
	_, err := s.db.Exec(`INSERT INTO entries (kind, actor, detail, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		kind, actor, detail, s.HashIP(ip), time.Now().UTC())
	return err
}

// ListRecent returns the most recent entries, newest first.
func (s *Store) ListRecent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, kind, actor, detail, ip_hash, created_at FROM entries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Actor, &e.Detail, &e.IPHash, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountSince returns how many entries of the given kind were recorded at or
// after since.
func (s *Store) CountSince(kind string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE kind = ? AND created_at >= ?`, kind, since.UTC()).Scan(&n)
	return n, err
}

// DeleteOlderThan removes entries older than the cutoff and returns how
// many were deleted.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM entries WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// StartCleanupScheduler deletes entries older than retentionDays on the
// given interval. The returned function stops the scheduler.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retentionDays)
				if _, err := s.DeleteOlderThan(cutoff); err != nil {
					fmt.Fprintf(os.Stderr, "audit cleanup: %v\n", err)
				}
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}
