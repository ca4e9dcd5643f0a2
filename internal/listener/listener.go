// Package listener receives foreground pushes one at a time. Each arming
// resolves exactly once; the caller re-arms explicitly.
package listener

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/classifier"
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/internal/store"
	"github.com/charlesng35/pushbell/internal/toast"
	"github.com/charlesng35/pushbell/pkg/logger"
	"github.com/charlesng35/pushbell/pkg/metrics"
)

// ErrAlreadyArmed is returned when Arm is called while a previous arming is
// still unresolved.
var ErrAlreadyArmed = errors.New("listener: already armed")

// State is the listener lifecycle position.
type State string

const (
	StateIdle        State = "idle"
	StateArmed       State = "armed"
	StateDispatching State = "dispatching"
)

// Source yields the next foreground payload.
type Source interface {
	Receive(ctx context.Context) (payload.Payload, error)
}

// Recorder persists a classified payload.
type Recorder interface {
	Create(ctx context.Context, userID string, input store.CreateInput) (models.NotificationRecord, error)
}

// Toaster shows a transient notification.
type Toaster interface {
	Show(userID string, rec models.NotificationRecord) toast.Toast
}

// PermissionChecker reports the installation notification permission.
type PermissionChecker interface {
	Permission(ctx context.Context) models.Permission
}

// Result is the outcome of one arming.
type Result struct {
	Payload payload.Payload
	Record  models.NotificationRecord
	Toasted bool
	Err     error
}

// Option configures a Listener.
type Option func(*Listener)

// WithToaster shows a toast for each dispatched record while perms reports
// granted.
func WithToaster(t Toaster, perms PermissionChecker) Option {
	return func(l *Listener) {
		l.toaster = t
		l.perms = perms
	}
}

// Listener dispatches foreground pushes for one user.
type Listener struct {
	userID   string
	source   Source
	recorder Recorder
	toaster  Toaster
	perms    PermissionChecker
	log      *zap.Logger

	mu    sync.Mutex
	state State
}

// New constructs an idle listener for userID.
func New(userID string, source Source, recorder Recorder, opts ...Option) (*Listener, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("listener: user id is required")
	}
	if source == nil {
		return nil, errors.New("listener: source is required")
	}
	if recorder == nil {
		return nil, errors.New("listener: recorder is required")
	}
	l := &Listener{
		userID:   userID,
		source:   source,
		recorder: recorder,
		log:      logger.WithModule("listener").With(zap.String("user_id", userID)),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Arm waits for the next payload in the background. The returned channel
// delivers exactly one Result and is then closed.
func (l *Listener) Arm(ctx context.Context) (<-chan Result, error) {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return nil, ErrAlreadyArmed
	}
	l.state = StateArmed
	l.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)

		p, err := l.source.Receive(ctx)
		if err != nil {
			l.log.Warn("foreground receive failed", zap.Error(err))
			l.setState(StateIdle)
			out <- Result{Err: err}
			return
		}

		l.setState(StateDispatching)
		res := l.dispatch(ctx, p)
		l.setState(StateIdle)
		out <- res
	}()
	return out, nil
}

// Next arms the listener and blocks until it resolves or ctx ends.
func (l *Listener) Next(ctx context.Context) (Result, error) {
	ch, err := l.Arm(ctx)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return Result{Err: ctx.Err()}, ctx.Err()
	}
}

func (l *Listener) dispatch(ctx context.Context, p payload.Payload) Result {
	metrics.PushesReceived.WithLabelValues("foreground").Inc()

	res := Result{Payload: p}
	rec, err := l.recorder.Create(ctx, l.userID, store.CreateInput{
		Title:   p.Title(),
		Message: p.Body(),
		Type:    classifier.Classify(p),
		Data:    p.DataCopy(),
	})
	res.Record = rec
	if err != nil {
		l.log.Warn("failed to record foreground notification", zap.Error(err))
		res.Err = err
		if rec.ID == "" {
			return res
		}
	}

	if l.toaster != nil && l.perms != nil && l.perms.Permission(ctx) == models.PermissionGranted {
		l.toaster.Show(l.userID, rec)
		res.Toasted = true
	}
	return res
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
