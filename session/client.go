// Package session owns the admin console's authentication state. A Provider
// wraps a backend auth Client, mirrors the current session into a state
// tuple, and layers the console's admin-only authorization rule on top of
// generic sign-in.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// User mirrors the principal record owned by the auth backend. The provider
// never writes to it; it only holds the copy the backend handed out.
type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

// Session is a live authenticated session issued by the auth backend.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// AuthEvent identifies a push notification about session state.
type AuthEvent int

const (
	EventSignedIn AuthEvent = iota
	EventSignedOut
)

// Client is the auth backend boundary. The provider depends only on this
// shape; any backend implementing these semantics is substitutable.
// Postgate ships a SQLite-backed implementation (AuthStore).
type Client interface {
	// GetSession resolves a previously issued token. Unknown or expired
	// tokens resolve to (nil, nil), not an error.
	GetSession(ctx context.Context, token string) (*Session, error)

	// SignInWithPassword verifies credentials and issues a new session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignOut revokes the session identified by token. Revoking an unknown
	// token is not an error.
	SignOut(ctx context.Context, token string) error

	// OnAuthStateChange registers fn to be invoked on every sign-in and
	// sign-out until the returned subscription is released.
	OnAuthStateChange(fn func(AuthEvent, *Session)) *Subscription
}

// Subscription is a handle to a registered auth-state callback.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel in a Subscription. Client implementations
// call this; cancel must deregister the callback.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe releases the callback. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
