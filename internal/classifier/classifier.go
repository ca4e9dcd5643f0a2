// Package classifier maps push payloads to notification types.
package classifier

import (
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/payload"
)

const (
	TypeApplicationStatusUpdate = "application_status_update"

	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Classify is total: any payload yields one of success, warning or info.
// It never yields error.
func Classify(p payload.Payload) models.NotificationType {
	if p.Get("type") != TypeApplicationStatusUpdate {
		return models.NotificationInfo
	}

	switch p.Get("status") {
	case StatusApproved:
		return models.NotificationSuccess
	case StatusRejected:
		return models.NotificationWarning
	default:
		return models.NotificationInfo
	}
}
