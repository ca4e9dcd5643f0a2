package realtime

// Named streams served by the hub.
const (
	StreamNotifications = "notifications"
	StreamToasts        = "toasts"
	StreamPush          = "push"
)

// Events published on those streams.
const (
	EventNotificationsChanged = "notifications.changed"
	EventToastShow            = "toast.show"
	EventToastHide            = "toast.hide"
	EventPermissionPrompt     = "permission.prompt"
	EventPush                 = "push"
)

// Streams lists every stream a consumer may subscribe to.
func Streams() []string {
	return []string{StreamNotifications, StreamToasts, StreamPush}
}
