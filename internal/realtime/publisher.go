package realtime

import (
	"context"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/toast"
)

// Publisher turns store changes, toasts and permission prompts into hub
// messages for the affected user.
type Publisher struct {
	hub *Hub
}

// NewPublisher returns a Publisher broadcasting on hub.
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// NotificationsChanged sends the full sorted collection with derived counts.
func (p *Publisher) NotificationsChanged(userID string, records []models.NotificationRecord) {
	p.hub.BroadcastToUser(StreamNotifications, userID, Message{
		Event: EventNotificationsChanged,
		Data:  records,
		Meta: map[string]any{
			"total":  len(records),
			"unread": models.CountUnread(records),
		},
	})
}

// PromptPermission asks connected consumers to show the in-app permission prompt.
func (p *Publisher) PromptPermission(_ context.Context, userID string) {
	p.hub.BroadcastToUser(StreamPush, userID, Message{Event: EventPermissionPrompt})
}

func (p *Publisher) ShowToast(userID string, t toast.Toast) {
	p.hub.BroadcastToUser(StreamToasts, userID, Message{Event: EventToastShow, Data: t})
}

func (p *Publisher) HideToast(userID, id string) {
	p.hub.BroadcastToUser(StreamToasts, userID, Message{Event: EventToastHide, Data: map[string]string{"id": id}})
}
