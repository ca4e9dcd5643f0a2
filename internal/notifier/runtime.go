// Package notifier ties the per-session lifecycle together: loading the
// store, checking push permission and running the foreground re-arm loop.
package notifier

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/realtime"
	"github.com/charlesng35/pushbell/internal/store"
	"github.com/charlesng35/pushbell/internal/toast"
	"github.com/charlesng35/pushbell/internal/token"
	"github.com/charlesng35/pushbell/pkg/logger"
)

// DefaultRetryDelay is the pause before re-arming after a receive error.
const DefaultRetryDelay = 2 * time.Second

// SourceFactory opens the foreground source for a session.
type SourceFactory func(ctx context.Context, sess token.Session) (listener.Source, error)

// Option configures a Runtime.
type Option func(*Runtime)

// WithRetryDelay overrides DefaultRetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithToasts enables toasts for foreground pushes.
func WithToasts(m *toast.Manager) Option {
	return func(r *Runtime) {
		r.toasts = m
	}
}

type session struct {
	sess   token.Session
	source listener.Source
	cancel context.CancelFunc
	done   chan struct{}
}

// Runtime owns the logged-in session of this process. At most one session is
// active at a time since the delivery token belongs to a single user.
type Runtime struct {
	store      *store.Store
	tokens     *token.Manager
	toasts     *toast.Manager
	newSource  SourceFactory
	retryDelay time.Duration
	log        *zap.Logger

	// lifecycle serializes Login, Logout and Close.
	lifecycle sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session
}

// New constructs a Runtime.
func New(s *store.Store, tokens *token.Manager, newSource SourceFactory, opts ...Option) (*Runtime, error) {
	if s == nil {
		return nil, errors.New("notifier: store is required")
	}
	if tokens == nil {
		return nil, errors.New("notifier: token manager is required")
	}
	r := &Runtime{
		store:      s,
		tokens:     tokens,
		newSource:  newSource,
		retryDelay: DefaultRetryDelay,
		log:        logger.WithModule("notifier"),
		sessions:   make(map[string]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Login loads the user's notifications, runs the permission check and starts
// the foreground loop. Any active session, for this or another user, is
// ended first.
func (r *Runtime) Login(ctx context.Context, sess token.Session) (models.DeliveryToken, error) {
	sess.UserID = strings.TrimSpace(sess.UserID)
	if sess.UserID == "" {
		return models.DeliveryToken{}, errors.New("notifier: user id is required")
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	for _, id := range r.activeUsers() {
		if err := r.endSession(id); err != nil {
			r.log.Warn("failed to close previous session", zap.String("user_id", id), zap.Error(err))
		}
	}

	r.store.Load(ctx, sess.UserID)
	tok := r.tokens.CheckAndPrompt(ctx, sess)

	s := &session{sess: sess, done: make(chan struct{})}
	if err := r.startListener(s); err != nil {
		r.log.Warn("foreground channel unavailable", zap.String("user_id", sess.UserID), zap.Error(err))
		close(s.done)
	}

	r.mu.Lock()
	r.sessions[sess.UserID] = s
	r.mu.Unlock()

	r.log.Info("session started", zap.String("user_id", sess.UserID), zap.String("registration", string(tok.RegistrationState)))
	return tok, nil
}

// Logout stops the foreground loop and drops the in-memory view. Persisted
// notifications are kept. Logging out a user without a session is a no-op.
func (r *Runtime) Logout(userID string) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.endSession(userID)
}

// Session returns the active session of userID.
func (r *Runtime) Session(userID string) (token.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	if !ok {
		return token.Session{}, false
	}
	return s.sess, true
}

// Close ends every session.
func (r *Runtime) Close() error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	var err error
	for _, id := range r.activeUsers() {
		err = multierr.Append(err, r.endSession(id))
	}
	return err
}

func (r *Runtime) activeUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// endSession must be called with lifecycle held.
func (r *Runtime) endSession(userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	var err error
	if s.cancel != nil {
		s.cancel()
	}
	if closer, ok := s.source.(io.Closer); ok {
		err = closer.Close()
	}
	<-s.done

	r.store.Teardown(userID)
	if r.toasts != nil {
		r.toasts.DismissUser(userID)
	}
	r.tokens.Reset()
	r.log.Info("session ended", zap.String("user_id", userID))
	return err
}

func (r *Runtime) startListener(s *session) error {
	if r.newSource == nil {
		return errors.New("notifier: no foreground source configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	src, err := r.newSource(ctx, s.sess)
	if err != nil {
		cancel()
		return err
	}

	var opts []listener.Option
	if r.toasts != nil {
		opts = append(opts, listener.WithToaster(r.toasts, r.tokens))
	}
	l, err := listener.New(s.sess.UserID, src, r.store, opts...)
	if err != nil {
		cancel()
		if closer, ok := src.(io.Closer); ok {
			_ = closer.Close()
		}
		return err
	}

	s.source = src
	s.cancel = cancel
	go r.run(ctx, l, s.done)
	return nil
}

// run re-arms the listener after every resolution until ctx ends or the
// source is exhausted. Receive errors pause for retryDelay first.
func (r *Runtime) run(ctx context.Context, l *listener.Listener, done chan<- struct{}) {
	defer close(done)

	for {
		_, err := l.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err == nil, errors.Is(err, store.ErrPersist):
			continue
		case errors.Is(err, listener.ErrSourceClosed), errors.Is(err, realtime.ErrStreamClosed):
			r.log.Info("foreground source ended", zap.Error(err))
			return
		}

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
