package notifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/internal/storage"
	"github.com/charlesng35/pushbell/internal/store"
	"github.com/charlesng35/pushbell/internal/toast"
	"github.com/charlesng35/pushbell/internal/token"
)

type okAssociator struct{}

func (okAssociator) Associate(context.Context, string, string) error { return nil }

type countingSink struct {
	mu    sync.Mutex
	shown int
}

func (s *countingSink) ShowToast(string, toast.Toast) {
	s.mu.Lock()
	s.shown++
	s.mu.Unlock()
}

func (s *countingSink) HideToast(string, string) {}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shown
}

type harness struct {
	runtime *Runtime
	store   *store.Store
	tokens  *token.Manager
	inbox   *listener.Inbox
	kv      storage.KV
	sink    *countingSink
}

func newHarness(t *testing.T, perm models.Permission) harness {
	t.Helper()
	kv := storage.NewMemoryStore()
	s, err := store.New(kv)
	require.NoError(t, err)

	perms := token.NewKVPermissionStore(kv)
	if perm != models.PermissionDefault {
		require.NoError(t, perms.SetPermission(context.Background(), perm))
	}
	tokens, err := token.NewManager(perms, nil, staticProvider("device"), okAssociator{})
	require.NoError(t, err)

	inbox := listener.NewInbox(8)
	sink := &countingSink{}
	toasts := toast.NewManager(sink, time.Hour)
	t.Cleanup(toasts.Close)

	rt, err := New(s, tokens, InboxSources(inbox), WithToasts(toasts), WithRetryDelay(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	return harness{runtime: rt, store: s, tokens: tokens, inbox: inbox, kv: kv, sink: sink}
}

type staticProvider string

func (p staticProvider) Token(context.Context) (string, error) { return string(p), nil }

func TestLoginRegistersAndListens(t *testing.T) {
	h := newHarness(t, models.PermissionGranted)
	ctx := context.Background()

	tok, err := h.runtime.Login(ctx, token.Session{UserID: "u1", AuthToken: "jwt"})
	require.NoError(t, err)
	require.Equal(t, models.RegistrationRegistered, tok.RegistrationState)

	sess, ok := h.runtime.Session("u1")
	require.True(t, ok)
	require.Equal(t, "jwt", sess.AuthToken)

	require.NoError(t, h.inbox.Deliver("u1", payload.Payload{Data: map[string]string{"type": "application_status_update", "status": "approved"}}))
	require.NoError(t, h.inbox.Deliver("u1", payload.Payload{}))

	require.Eventually(t, func() bool { return len(h.store.List(ctx, "u1")) == 2 }, time.Second, 5*time.Millisecond)
	list := h.store.List(ctx, "u1")
	types := []models.NotificationType{list[0].Type, list[1].Type}
	require.ElementsMatch(t, []models.NotificationType{models.NotificationSuccess, models.NotificationInfo}, types)
	require.Eventually(t, func() bool { return h.sink.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestLogoutTearsDownButKeepsData(t *testing.T) {
	h := newHarness(t, models.PermissionDefault)
	ctx := context.Background()

	_, err := h.runtime.Login(ctx, token.Session{UserID: "u1", AuthToken: "jwt"})
	require.NoError(t, err)
	require.NoError(t, h.inbox.Deliver("u1", payload.Payload{}))
	require.Eventually(t, func() bool { return h.store.UnreadCount(ctx, "u1") == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, h.sink.count())

	require.NoError(t, h.runtime.Logout("u1"))
	require.False(t, h.store.Loaded("u1"))
	_, ok := h.runtime.Session("u1")
	require.False(t, ok)
	require.ErrorIs(t, h.inbox.Deliver("u1", payload.Payload{}), listener.ErrNoListener)
	require.Equal(t, models.RegistrationUnregistered, h.tokens.State())

	require.Len(t, h.store.Load(ctx, "u1"), 1)
	require.NoError(t, h.runtime.Logout("u1"))
}

func TestLoginRequiresUser(t *testing.T) {
	h := newHarness(t, models.PermissionDefault)
	_, err := h.runtime.Login(context.Background(), token.Session{})
	require.Error(t, err)
}

type flakySource struct {
	calls atomic.Int32
}

func (f *flakySource) Receive(ctx context.Context) (payload.Payload, error) {
	switch f.calls.Add(1) {
	case 1:
		return payload.Payload{}, errors.New("transient")
	case 2:
		return payload.Payload{}, nil
	default:
		<-ctx.Done()
		return payload.Payload{}, ctx.Err()
	}
}

func TestRunReArmsAfterError(t *testing.T) {
	kv := storage.NewMemoryStore()
	s, err := store.New(kv)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.NewKVPermissionStore(kv), nil, staticProvider("x"), okAssociator{})
	require.NoError(t, err)

	src := &flakySource{}
	rt, err := New(s, tokens, func(context.Context, token.Session) (listener.Source, error) { return src, nil }, WithRetryDelay(5*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	_, err = rt.Login(context.Background(), token.Session{UserID: "u1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.UnreadCount(context.Background(), "u1") == 1 }, time.Second, 5*time.Millisecond)
	require.GreaterOrEqual(t, src.calls.Load(), int32(2))
}

func TestLoginWithoutForegroundSourceStillLoads(t *testing.T) {
	kv := storage.NewMemoryStore()
	s, err := store.New(kv)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.NewKVPermissionStore(kv), nil, staticProvider("x"), okAssociator{})
	require.NoError(t, err)

	rt, err := New(s, tokens, StreamSources(""))
	require.NoError(t, err)

	_, err = rt.Login(context.Background(), token.Session{UserID: "u1"})
	require.NoError(t, err)
	require.True(t, s.Loaded("u1"))
	require.NoError(t, rt.Close())
	require.False(t, s.Loaded("u1"))
}

func TestLoginEndsOtherUsersSession(t *testing.T) {
	h := newHarness(t, models.PermissionGranted)
	ctx := context.Background()

	_, err := h.runtime.Login(ctx, token.Session{UserID: "u1", AuthToken: "jwt-1"})
	require.NoError(t, err)
	tok, err := h.runtime.Login(ctx, token.Session{UserID: "u2", AuthToken: "jwt-2"})
	require.NoError(t, err)
	require.Equal(t, "u2", tok.AssociatedUserID)

	_, ok := h.runtime.Session("u1")
	require.False(t, ok)
	require.False(t, h.store.Loaded("u1"))
	require.ErrorIs(t, h.inbox.Deliver("u1", payload.Payload{}), listener.ErrNoListener)

	// Logging out a user that is no longer active leaves the token alone.
	require.NoError(t, h.runtime.Logout("u1"))
	require.Equal(t, models.RegistrationRegistered, h.tokens.State())
	require.Equal(t, "u2", h.tokens.Token().AssociatedUserID)

	require.NoError(t, h.runtime.Logout("u2"))
	require.Equal(t, models.RegistrationUnregistered, h.tokens.State())
	require.Empty(t, h.tokens.Token().AssociatedUserID)
}

type trackedSource struct {
	listener.Source
	closed *atomic.Int32
}

func (s *trackedSource) Close() error {
	s.closed.Add(1)
	if closer, ok := s.Source.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func TestConcurrentLoginsKeepOneSession(t *testing.T) {
	kv := storage.NewMemoryStore()
	s, err := store.New(kv)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.NewKVPermissionStore(kv), nil, staticProvider("x"), okAssociator{})
	require.NoError(t, err)

	inbox := listener.NewInbox(8)
	base := InboxSources(inbox)
	var opened, closed atomic.Int32
	factory := func(ctx context.Context, sess token.Session) (listener.Source, error) {
		src, err := base(ctx, sess)
		if err != nil {
			return nil, err
		}
		opened.Add(1)
		return &trackedSource{Source: src, closed: &closed}, nil
	}

	rt, err := New(s, tokens, factory, WithRetryDelay(5*time.Millisecond))
	require.NoError(t, err)

	const logins = 8
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rt.Login(context.Background(), token.Session{UserID: "u1"})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(logins), opened.Load())
	require.Equal(t, int32(logins-1), closed.Load())
	require.Len(t, rt.activeUsers(), 1)

	require.NoError(t, inbox.Deliver("u1", payload.Payload{}))
	require.Eventually(t, func() bool { return s.UnreadCount(context.Background(), "u1") == 1 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return s.UnreadCount(context.Background(), "u1") > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, rt.Close())
	require.Equal(t, opened.Load(), closed.Load())
	require.Empty(t, rt.activeUsers())
}
