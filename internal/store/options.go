package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithDedupWindow suppresses records whose content matches one created for
// the same user within window. Zero disables suppression.
func WithDedupWindow(window time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.dedupWindow = window
		}
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// defaultID derives an id from the creation time plus a random suffix so two
// records created in the same millisecond stay distinct.
func defaultID(t time.Time) string {
	return fmt.Sprintf("%d-%s", t.UnixMilli(), uuid.NewString()[:8])
}
