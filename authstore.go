package postgate

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/avessi/postgate/session"
)

// ErrInvalidCredentials is returned by SignInWithPassword for unknown
// emails and wrong passwords alike, so callers cannot probe which one it
// was.
var ErrInvalidCredentials = errors.New("Invalid login credentials")

const defaultSessionTTL = 12 * time.Hour

// AuthStore is a SQLite-backed auth client: users with bcrypt password
// hashes and server-side opaque session tokens. It implements
// session.Client and stands in for a hosted auth backend; anything else
// implementing that interface is substitutable.
type AuthStore struct {
	db  *sql.DB
	ttl time.Duration

	subMu   sync.Mutex
	subs    map[int]func(session.AuthEvent, *session.Session)
	nextSub int
}

// NewAuthStore opens (or creates) the credential database at path.
func NewAuthStore(path string) (*AuthStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &AuthStore{
		db:   db,
		ttl:  defaultSessionTTL,
		subs: make(map[int]func(session.AuthEvent, *session.Session)),
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *AuthStore) Close() error {
	return s.db.Close()
}

func (s *AuthStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
`)
	return err
}

// CreateUser registers a new user with a bcrypt-hashed password. Used by
// the postgate CLI to seed the credential store.
func (s *AuthStore) CreateUser(ctx context.Context, email, password string) (session.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return session.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := session.User{
		ID:        uuid.New(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID.String(), u.Email, string(hash), u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return session.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// SignInWithPassword verifies credentials and issues a new session token.
func (s *AuthStore) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	var idStr, hash, createdAt string
	err := s.db.QueryRowContext(ctx, `SELECT id, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&idStr, &hash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	created, _ := time.Parse(time.RFC3339, createdAt)

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	expires := now.Add(s.ttl)
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		token, idStr, expires.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	sess := &session.Session{
		Token:     token,
		User:      session.User{ID: id, Email: email, CreatedAt: created},
		ExpiresAt: expires,
	}
	s.emit(session.EventSignedIn, sess)
	return sess, nil
}

// GetSession resolves a token to its session. Unknown and expired tokens
// resolve to (nil, nil); expired rows are deleted on the way out.
func (s *AuthStore) GetSession(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, nil
	}
	var idStr, email, userCreated, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token).
		Scan(&idStr, &email, &userCreated, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || !expires.After(time.Now().UTC()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
		return nil, nil
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	created, _ := time.Parse(time.RFC3339, userCreated)
	return &session.Session{
		Token:     token,
		User:      session.User{ID: id, Email: email, CreatedAt: created},
		ExpiresAt: expires,
	}, nil
}

// SignOut revokes the session identified by token. Revoking an unknown
// token is a no-op.
func (s *AuthStore) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.emit(session.EventSignedOut, nil)
	return nil
}

// OnAuthStateChange registers fn for sign-in/sign-out events.
func (s *AuthStore) OnAuthStateChange(fn func(session.AuthEvent, *session.Session)) *session.Subscription {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return session.NewSubscription(func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	})
}

func (s *AuthStore) emit(ev session.AuthEvent, sess *session.Session) {
	s.subMu.Lock()
	fns := make([]func(session.AuthEvent, *session.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev, sess)
	}
}

// newToken returns a 256-bit random token in hex.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
