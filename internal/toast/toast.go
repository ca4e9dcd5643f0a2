// Package toast shows transient in-app notifications that hide themselves
// after a fixed interval.
package toast

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/pkg/logger"
)

// DefaultDuration is how long a toast stays visible.
const DefaultDuration = 5 * time.Second

// Toast is the transient rendition of a notification record.
type Toast struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      models.NotificationType `json:"type"`
	Data      map[string]string       `json:"data,omitempty"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// Sink renders toasts for a user.
type Sink interface {
	ShowToast(userID string, t Toast)
	HideToast(userID, id string)
}

type key struct {
	userID string
	id     string
}

// Manager tracks visible toasts and their hide timers.
type Manager struct {
	sink     Sink
	duration time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timers map[key]*time.Timer
	closed bool
}

// NewManager returns a Manager rendering to sink. A non-positive duration
// uses DefaultDuration.
func NewManager(sink Sink, duration time.Duration) *Manager {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Manager{
		sink:     sink,
		duration: duration,
		log:      logger.WithModule("toast"),
		timers:   make(map[key]*time.Timer),
	}
}

// Duration returns the auto-hide interval.
func (m *Manager) Duration() time.Duration {
	return m.duration
}

// Show displays rec for the user and schedules its hide.
func (m *Manager) Show(userID string, rec models.NotificationRecord) Toast {
	t := Toast{
		ID:        rec.ID,
		Title:     rec.Title,
		Message:   rec.Message,
		Type:      rec.Type,
		Data:      rec.Clone().Data,
		ExpiresAt: time.Now().Add(m.duration),
	}

	k := key{userID: userID, id: rec.ID}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return t
	}
	if existing, ok := m.timers[k]; ok {
		existing.Stop()
	}
	m.timers[k] = time.AfterFunc(m.duration, func() { m.expire(k) })
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.ShowToast(userID, t)
	}
	m.log.Debug("toast shown", zap.String("user_id", userID), zap.String("id", rec.ID))
	return t
}

// Dismiss hides a toast early. Unknown toasts are ignored.
func (m *Manager) Dismiss(userID, id string) {
	k := key{userID: userID, id: id}
	m.mu.Lock()
	timer, ok := m.timers[k]
	if ok {
		timer.Stop()
		delete(m.timers, k)
	}
	m.mu.Unlock()

	if ok && m.sink != nil {
		m.sink.HideToast(userID, id)
	}
}

// DismissUser hides every toast of userID.
func (m *Manager) DismissUser(userID string) {
	m.mu.Lock()
	var ids []string
	for k, timer := range m.timers {
		if k.userID != userID {
			continue
		}
		timer.Stop()
		delete(m.timers, k)
		ids = append(ids, k.id)
	}
	m.mu.Unlock()

	if m.sink == nil {
		return
	}
	for _, id := range ids {
		m.sink.HideToast(userID, id)
	}
}

// Visible reports how many toasts are currently shown.
func (m *Manager) Visible() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Close stops all timers. Visible toasts are not hidden.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for k, timer := range m.timers {
		timer.Stop()
		delete(m.timers, k)
	}
}

func (m *Manager) expire(k key) {
	m.mu.Lock()
	_, ok := m.timers[k]
	delete(m.timers, k)
	m.mu.Unlock()

	if ok && m.sink != nil {
		m.sink.HideToast(k.userID, k.id)
	}
}
