package session

import (
	"context"
	"log"
	"sync"
)

// State is the session tuple exposed to readers. Authenticated is true iff
// User is non-nil, so the two never disagree. Loading is true only during
// the initial session check.
type State struct {
	User          *User
	Authenticated bool
	Loading       bool
}

// LoginResult is the structured outcome of a login attempt. Login never
// returns a Go error to the caller; failures of every kind land here.
type LoginResult struct {
	Success bool
	Error   string
}

// NotAuthorizedMessage is returned when credentials are valid but the user
// is not on the admin allow-list.
const NotAuthorizedMessage = "Not authorized as admin"

// Provider owns the console's session lifecycle. It wraps a Client, keeps
// the State tuple current through an initial lookup plus a push
// subscription, and exposes a read/subscribe surface to the rest of the
// application.
type Provider struct {
	client   Client
	auth     Authorizer
	notifier Notifier
	logger   *log.Logger

	mu      sync.RWMutex
	user    *User
	token   string
	loading bool

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int

	clientSub *Subscription
	ready     chan struct{}
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithAuthorizer replaces the default admin allow-list.
func WithAuthorizer(a Authorizer) ProviderOption {
	return func(p *Provider) { p.auth = a }
}

// WithNotifier replaces the default log-backed notifier.
func WithNotifier(n Notifier) ProviderOption {
	return func(p *Provider) { p.notifier = n }
}

// WithLogger sets the logger used for boundary errors.
func WithLogger(l *log.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// WithInitialToken supplies a persisted session token to restore during the
// startup check.
func WithInitialToken(token string) ProviderOption {
	return func(p *Provider) { p.token = token }
}

// NewProvider creates a Provider and starts its session lifecycle: the
// auth-state subscription is established synchronously, then the startup
// session check resolves in the background. Loading stays true until the
// startup check lands. Call Close when done to release the subscription.
func NewProvider(client Client, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:   client,
		auth:     DefaultAllowList,
		notifier: LogNotifier{},
		logger:   log.Default(),
		loading:  true,
		subs:     make(map[int]func(State)),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.clientSub = client.OnAuthStateChange(p.onAuthChange)

	initialToken := p.token
	go p.restore(initialToken)

	return p
}

// restore performs the one-time startup session lookup. Failures are logged
// only: state falls back to unauthenticated and loading still resolves so
// the application does not hang.
func (p *Provider) restore(token string) {
	defer close(p.ready)

	if token == "" {
		p.set(nil, "")
		return
	}
	s, err := p.client.GetSession(context.Background(), token)
	if err != nil {
		p.logger.Printf("session: startup check failed: %v", err)
		p.set(nil, "")
		return
	}
	if s == nil {
		p.set(nil, "")
		return
	}
	u := s.User
	p.set(&u, s.Token)
}

// Wait blocks until the startup session check has resolved. Intended for
// tests and synchronous startup paths.
func (p *Provider) Wait() {
	<-p.ready
}

// onAuthChange mirrors push events from the client into the state tuple.
// Both this path and restore write the same fields, so whichever lands last
// wins; either clears loading.
func (p *Provider) onAuthChange(ev AuthEvent, s *Session) {
	if ev == EventSignedIn && s != nil {
		u := s.User
		p.set(&u, s.Token)
		return
	}
	p.set(nil, "")
}

// set replaces the state tuple and notifies subscribers.
func (p *Provider) set(u *User, token string) {
	p.mu.Lock()
	p.user = u
	p.token = token
	p.loading = false
	state := p.snapshotLocked()
	p.mu.Unlock()

	p.subMu.Lock()
	fns := make([]func(State), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (p *Provider) snapshotLocked() State {
	var u *User
	if p.user != nil {
		copied := *p.user
		u = &copied
	}
	return State{
		User:          u,
		Authenticated: p.user != nil,
		Loading:       p.loading,
	}
}

// Snapshot returns the current session state.
func (p *Provider) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// Token returns the current session token, or "" when unauthenticated. The
// HTTP layer persists this in the browser cookie.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Subscribe registers fn to receive every state change until the returned
// subscription is released.
func (p *Provider) Subscribe(fn func(State)) *Subscription {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()

	return NewSubscription(func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	})
}

// Login delegates credential verification to the auth client, then applies
// the admin authorization rule. Authentication alone is insufficient: a
// valid sign-in by a non-admin is immediately rolled back (fail closed) and
// reported as a failure. Login never returns a Go error; every failure is a
// structured result plus a notification.
func (p *Provider) Login(ctx context.Context, email, password string) LoginResult {
	s, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		p.logger.Printf("session: sign-in failed for %s: %v", email, err)
		p.notifier.Notify(Notification{
			Title:       "Login failed",
			Description: err.Error(),
			Variant:     VariantDestructive,
		})
		return LoginResult{Success: false, Error: err.Error()}
	}

	if !p.auth.Authorize(s.User) {
		// Roll back the session the backend just issued so no
		// authenticated-but-unprivileged state survives.
		if err := p.client.SignOut(ctx, s.Token); err != nil {
			p.logger.Printf("session: rollback sign-out failed: %v", err)
		}
		p.set(nil, "")
		p.notifier.Notify(Notification{
			Title:       "Login failed",
			Description: NotAuthorizedMessage,
			Variant:     VariantDestructive,
		})
		return LoginResult{Success: false, Error: NotAuthorizedMessage}
	}

	u := s.User
	p.set(&u, s.Token)
	p.notifier.Notify(Notification{
		Title:       "Welcome back",
		Description: "Logged in as " + s.User.Email,
		Variant:     VariantSuccess,
	})
	return LoginResult{Success: true}
}

// Logout delegates session termination to the auth client. A client error
// is logged and notified only; local state is cleared regardless, so the
// caller always ends up unauthenticated.
func (p *Provider) Logout(ctx context.Context) {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token != "" {
		if err := p.client.SignOut(ctx, token); err != nil {
			p.logger.Printf("session: sign-out failed: %v", err)
			p.notifier.Notify(Notification{
				Title:       "Logout failed",
				Description: err.Error(),
				Variant:     VariantDestructive,
			})
		}
	}
	p.set(nil, "")
}

// CheckAdminStatus reports whether the currently held user passes the admin
// authorization rule. False when no user is held.
func (p *Provider) CheckAdminStatus() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return false
	}
	return p.auth.Authorize(*p.user)
}

// Close releases the auth-state subscription. The provider must not be used
// after Close.
func (p *Provider) Close() {
	if p.clientSub != nil {
		p.clientSub.Unsubscribe()
	}
}
