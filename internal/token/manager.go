// Package token drives the delivery-token lifecycle: permission prompting,
// provider registration and backend association.
package token

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/push"
	"github.com/charlesng35/pushbell/pkg/logger"
	"github.com/charlesng35/pushbell/pkg/metrics"
)

// Session identifies the logged-in user and carries the bearer token used
// for backend calls.
type Session struct {
	UserID    string
	AuthToken string
}

// PermissionStore reads and writes the installation permission.
type PermissionStore interface {
	Permission(ctx context.Context) (models.Permission, error)
	SetPermission(ctx context.Context, p models.Permission) error
}

// Prompter surfaces the in-app permission prompt.
type Prompter interface {
	PromptPermission(ctx context.Context, userID string)
}

// TokenProvider issues delivery tokens. push.ErrNoToken means none is available.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Associator links a delivery token to the session's user on the backend.
type Associator interface {
	Associate(ctx context.Context, authToken, token string) error
}

// Manager owns the single DeliveryToken of this installation.
type Manager struct {
	permissions PermissionStore
	prompter    Prompter
	provider    TokenProvider
	associator  Associator
	log         *zap.Logger
	now         func() time.Time

	mu    sync.Mutex
	token models.DeliveryToken
}

// NewManager wires a Manager. The prompter may be nil.
func NewManager(permissions PermissionStore, prompter Prompter, provider TokenProvider, associator Associator) (*Manager, error) {
	if permissions == nil {
		return nil, errors.New("token: permission store is required")
	}
	if provider == nil {
		return nil, errors.New("token: token provider is required")
	}
	if associator == nil {
		return nil, errors.New("token: associator is required")
	}
	return &Manager{
		permissions: permissions,
		prompter:    prompter,
		provider:    provider,
		associator:  associator,
		log:         logger.WithModule("token"),
		now:         time.Now,
		token:       models.DeliveryToken{RegistrationState: models.RegistrationUnregistered},
	}, nil
}

// State returns the current registration state.
func (m *Manager) State() models.RegistrationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token.RegistrationState
}

// Token returns a snapshot of the delivery token.
func (m *Manager) Token() models.DeliveryToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Permission returns the stored installation permission.
func (m *Manager) Permission(ctx context.Context) models.Permission {
	p, err := m.permissions.Permission(ctx)
	if err != nil {
		m.log.Warn("failed to read notification permission", zap.Error(err))
	}
	return p
}

// CheckAndPrompt inspects the permission: never asked surfaces the in-app
// prompt, granted registers, denied is terminal for the session.
func (m *Manager) CheckAndPrompt(ctx context.Context, sess Session) models.DeliveryToken {
	if strings.TrimSpace(sess.UserID) == "" {
		return m.Token()
	}

	switch m.Permission(ctx) {
	case models.PermissionGranted:
		return m.Register(ctx, sess)
	case models.PermissionDenied:
		m.setState(models.RegistrationDenied, "")
		m.log.Info("notification permission denied", zap.String("user_id", sess.UserID))
		return m.Token()
	default:
		if m.prompter != nil {
			m.prompter.PromptPermission(ctx, sess.UserID)
		} else {
			m.log.Debug("no prompter configured, permission stays undecided", zap.String("user_id", sess.UserID))
		}
		return m.Token()
	}
}

// ResolvePrompt records the user's answer to the in-app prompt. Answers are
// ignored once the permission has been decided.
func (m *Manager) ResolvePrompt(ctx context.Context, sess Session, granted bool) (models.DeliveryToken, error) {
	if m.Permission(ctx) != models.PermissionDefault {
		return m.Token(), nil
	}

	if !granted {
		if err := m.permissions.SetPermission(ctx, models.PermissionDenied); err != nil {
			return m.Token(), err
		}
		m.setState(models.RegistrationDenied, "")
		return m.Token(), nil
	}

	if err := m.permissions.SetPermission(ctx, models.PermissionGranted); err != nil {
		return m.Token(), err
	}
	return m.Register(ctx, sess), nil
}

// Register obtains a token and associates it with the session's user. It
// only proceeds when permission is granted and no registration is in flight.
// Failures are logged and reflected in the registration state.
func (m *Manager) Register(ctx context.Context, sess Session) models.DeliveryToken {
	if strings.TrimSpace(sess.UserID) == "" {
		return m.Token()
	}

	switch m.Permission(ctx) {
	case models.PermissionGranted:
	case models.PermissionDenied:
		m.setState(models.RegistrationDenied, "")
		metrics.TokenRegistrations.WithLabelValues("skipped").Inc()
		return m.Token()
	default:
		metrics.TokenRegistrations.WithLabelValues("skipped").Inc()
		return m.Token()
	}

	m.mu.Lock()
	if m.token.RegistrationState == models.RegistrationPending {
		m.mu.Unlock()
		return m.Token()
	}
	m.token.RegistrationState = models.RegistrationPending
	m.token.UpdatedAt = m.now()
	m.mu.Unlock()

	value, err := m.provider.Token(ctx)
	switch {
	case errors.Is(err, push.ErrNoToken) || (err == nil && strings.TrimSpace(value) == ""):
		m.log.Info("push provider issued no token", zap.String("user_id", sess.UserID), zap.Error(err))
		m.setState(models.RegistrationDenied, "")
		metrics.TokenRegistrations.WithLabelValues("denied").Inc()
		return m.Token()
	case err != nil:
		m.log.Warn("push provider failed", zap.String("user_id", sess.UserID), zap.Error(err))
		m.setState(models.RegistrationUnregistered, "")
		metrics.TokenRegistrations.WithLabelValues("provider_failed").Inc()
		return m.Token()
	}

	m.mu.Lock()
	m.token.Value = value
	m.mu.Unlock()

	if err := m.associator.Associate(ctx, sess.AuthToken, value); err != nil {
		m.log.Warn("failed to associate delivery token", zap.String("user_id", sess.UserID), zap.Error(err))
		m.setState(models.RegistrationUnregistered, "")
		metrics.TokenRegistrations.WithLabelValues("association_failed").Inc()
		return m.Token()
	}

	m.setState(models.RegistrationRegistered, sess.UserID)
	metrics.TokenRegistrations.WithLabelValues("registered").Inc()
	m.log.Info("delivery token registered", zap.String("user_id", sess.UserID))
	return m.Token()
}

// Reset returns the token to unregistered at logout. The token value is kept
// so the next login can re-associate it.
func (m *Manager) Reset() {
	m.setState(models.RegistrationUnregistered, "")
}

func (m *Manager) setState(state models.RegistrationState, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token.RegistrationState = state
	m.token.AssociatedUserID = userID
	m.token.UpdatedAt = m.now()
}
