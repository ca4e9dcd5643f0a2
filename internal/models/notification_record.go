package models

import (
	"maps"
	"time"
)

// NotificationType is the semantic severity attached to a notification record.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	// NotificationError is reserved for local operational failures; inbound
	// pushes are never classified as errors.
	NotificationError NotificationType = "error"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationSuccess, NotificationInfo, NotificationWarning, NotificationError:
		return true
	default:
		return false
	}
}

// NotificationRecord is one entry in a user's local notification collection.
type NotificationRecord struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      NotificationType  `json:"type"`
	Read      bool              `json:"read"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// Clone returns a deep copy of the record so callers cannot mutate shared state.
func (r NotificationRecord) Clone() NotificationRecord {
	if r.Data != nil {
		r.Data = maps.Clone(r.Data)
	}
	return r
}

// CountUnread derives the unread count from a collection. The count is never
// stored; consumers call this whenever the collection changes.
func CountUnread(records []NotificationRecord) int {
	n := 0
	for _, rec := range records {
		if !rec.Read {
			n++
		}
	}
	return n
}
