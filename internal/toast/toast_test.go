package toast

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/models"
)

type recordingSink struct {
	mu     sync.Mutex
	shown  []Toast
	hidden []string
}

func (s *recordingSink) ShowToast(_ string, t Toast) {
	s.mu.Lock()
	s.shown = append(s.shown, t)
	s.mu.Unlock()
}

func (s *recordingSink) HideToast(_ string, id string) {
	s.mu.Lock()
	s.hidden = append(s.hidden, id)
	s.mu.Unlock()
}

func (s *recordingSink) hiddenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hidden...)
}

func TestDefaultDuration(t *testing.T) {
	require.Equal(t, DefaultDuration, NewManager(nil, 0).Duration())
	require.Equal(t, 5*time.Second, DefaultDuration)
}

func TestShowAutoHides(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, 20*time.Millisecond)
	t.Cleanup(m.Close)

	shown := m.Show("u1", models.NotificationRecord{ID: "n1", Title: "Hello", Type: models.NotificationSuccess})
	require.Equal(t, "n1", shown.ID)
	require.Equal(t, 1, m.Visible())

	require.Eventually(t, func() bool {
		return len(sink.hiddenIDs()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"n1"}, sink.hiddenIDs())
	require.Zero(t, m.Visible())
}

func TestDismissHidesOnce(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, time.Hour)
	t.Cleanup(m.Close)

	m.Show("u1", models.NotificationRecord{ID: "n1"})
	m.Dismiss("u1", "n1")
	m.Dismiss("u1", "n1")
	m.Dismiss("u1", "unknown")

	require.Equal(t, []string{"n1"}, sink.hiddenIDs())
}

func TestDismissUserOnlyTouchesThatUser(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, time.Hour)
	t.Cleanup(m.Close)

	m.Show("u1", models.NotificationRecord{ID: "a"})
	m.Show("u2", models.NotificationRecord{ID: "b"})
	m.DismissUser("u1")

	require.Equal(t, []string{"a"}, sink.hiddenIDs())
	require.Equal(t, 1, m.Visible())
}

func TestCloseStopsTimers(t *testing.T) {
	sink := &recordingSink{}
	m := NewManager(sink, 10*time.Millisecond)
	m.Show("u1", models.NotificationRecord{ID: "n1"})
	m.Close()

	time.Sleep(30 * time.Millisecond)
	require.Empty(t, sink.hiddenIDs())

	m.Show("u1", models.NotificationRecord{ID: "n2"})
	require.Zero(t, m.Visible())
}
