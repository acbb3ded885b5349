package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory Client with the same event semantics as the
// real auth store: it emits SignedIn/SignedOut pushes on its own calls.
type fakeClient struct {
	mu       sync.Mutex
	users    map[string]string // email -> password
	sessions map[string]Session
	subs     map[int]func(AuthEvent, *Session)
	nextSub  int

	signOutErr error
	getErr     error
}

func newFakeClient(users map[string]string) *fakeClient {
	return &fakeClient{
		users:    users,
		sessions: make(map[string]Session),
		subs:     make(map[int]func(AuthEvent, *Session)),
	}
}

func (f *fakeClient) GetSession(ctx context.Context, token string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	f.mu.Lock()
	want, ok := f.users[email]
	f.mu.Unlock()
	if !ok || want != password {
		return nil, errors.New("Invalid login credentials")
	}
	s := Session{
		Token:     fmt.Sprintf("token-%s-%d", email, time.Now().UnixNano()),
		User:      User{ID: uuid.New(), Email: email, CreatedAt: time.Now()},
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.mu.Lock()
	f.sessions[s.Token] = s
	f.mu.Unlock()
	f.emit(EventSignedIn, &s)
	return &s, nil
}

func (f *fakeClient) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	err := f.signOutErr
	delete(f.sessions, token)
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.emit(EventSignedOut, nil)
	return nil
}

func (f *fakeClient) OnAuthStateChange(fn func(AuthEvent, *Session)) *Subscription {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return NewSubscription(func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	})
}

func (f *fakeClient) emit(ev AuthEvent, s *Session) {
	f.mu.Lock()
	fns := make([]func(AuthEvent, *Session), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

func (f *fakeClient) liveSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Notification{}, false
	}
	return r.sent[len(r.sent)-1], true
}

func newTestProvider(t *testing.T, client Client, opts ...ProviderOption) *Provider {
	t.Helper()
	p := NewProvider(client, opts...)
	t.Cleanup(p.Close)
	p.Wait()
	return p
}

func TestLoginRejectedCredentials(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	notifier := &recordingNotifier{}
	p := newTestProvider(t, client, WithNotifier(notifier))

	result := p.Login(context.Background(), "admin@example.com", "wrong")

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid login credentials", result.Error)

	state := p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.Nil(t, state.User)

	n, ok := notifier.last()
	require.True(t, ok)
	assert.Equal(t, VariantDestructive, n.Variant)
}

func TestLoginNonAdminRollsBack(t *testing.T) {
	client := newFakeClient(map[string]string{"bob@example.com": "secret"})
	p := newTestProvider(t, client)

	result := p.Login(context.Background(), "bob@example.com", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, NotAuthorizedMessage, result.Error)
	assert.False(t, p.CheckAdminStatus())

	state := p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.Nil(t, state.User)

	// The backend session issued during sign-in must have been revoked.
	assert.Equal(t, 0, client.liveSessions())
}

func TestLoginAdmin(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	p := newTestProvider(t, client)

	result := p.Login(context.Background(), "admin@example.com", "secret")

	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.True(t, p.CheckAdminStatus())
	assert.NotEmpty(t, p.Token())

	state := p.Snapshot()
	assert.True(t, state.Authenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "admin@example.com", state.User.Email)
	assert.False(t, state.Loading)
}

func TestLogoutAlwaysClearsState(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	notifier := &recordingNotifier{}
	p := newTestProvider(t, client, WithNotifier(notifier))

	require.True(t, p.Login(context.Background(), "admin@example.com", "secret").Success)

	// Even when the backend reports an error, local state must clear.
	client.mu.Lock()
	client.signOutErr = errors.New("network down")
	client.mu.Unlock()

	p.Logout(context.Background())

	state := p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, p.Token())
	assert.False(t, p.CheckAdminStatus())
}

func TestStartupRestore(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	issued, err := client.SignInWithPassword(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)

	p := newTestProvider(t, client, WithInitialToken(issued.Token))

	state := p.Snapshot()
	assert.True(t, state.Authenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "admin@example.com", state.User.Email)
	assert.False(t, state.Loading)
}

func TestStartupRestoreUnknownToken(t *testing.T) {
	client := newFakeClient(nil)
	p := newTestProvider(t, client, WithInitialToken("stale"))

	state := p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.False(t, state.Loading)
}

func TestStartupCheckFailureStillResolvesLoading(t *testing.T) {
	client := newFakeClient(nil)
	client.getErr = errors.New("backend unreachable")

	p := newTestProvider(t, client, WithInitialToken("whatever"))

	state := p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.False(t, state.Loading, "loading must resolve even when the startup check fails")
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	p := newTestProvider(t, client)

	var mu sync.Mutex
	var got []State
	sub := p.Subscribe(func(s State) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	require.True(t, p.Login(context.Background(), "admin@example.com", "secret").Success)

	mu.Lock()
	seen := len(got)
	last := got[len(got)-1]
	mu.Unlock()
	require.Greater(t, seen, 0)
	assert.True(t, last.Authenticated)

	// Unsubscribe is a scoped release: no further deliveries, and calling
	// it twice is safe.
	sub.Unsubscribe()
	sub.Unsubscribe()

	p.Logout(context.Background())

	mu.Lock()
	assert.Equal(t, seen, len(got))
	mu.Unlock()
}

func TestProviderMirrorsClientEvents(t *testing.T) {
	client := newFakeClient(map[string]string{"admin@example.com": "secret"})
	p := newTestProvider(t, client)

	// A sign-in performed directly against the client (another surface)
	// must be pushed into the provider's state.
	issued, err := client.SignInWithPassword(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)

	state := p.Snapshot()
	assert.True(t, state.Authenticated)

	require.NoError(t, client.SignOut(context.Background(), issued.Token))

	state = p.Snapshot()
	assert.False(t, state.Authenticated)
	assert.Nil(t, state.User)
}

func TestAllowList(t *testing.T) {
	list := AllowList{"admin@example.com", "admin"}

	assert.True(t, list.Authorize(User{Email: "admin@example.com"}))
	assert.True(t, list.Authorize(User{Email: "admin"}))
	assert.False(t, list.Authorize(User{Email: "Admin@Example.com"}), "matching is exact")
	assert.False(t, list.Authorize(User{Email: "bob@example.com"}))
	assert.False(t, AllowList{}.Authorize(User{Email: "admin"}))
}
