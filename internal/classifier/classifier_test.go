package classifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/payload"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		data map[string]string
		want models.NotificationType
	}{
		{"approved", map[string]string{"type": TypeApplicationStatusUpdate, "status": "approved"}, models.NotificationSuccess},
		{"rejected", map[string]string{"type": TypeApplicationStatusUpdate, "status": "rejected"}, models.NotificationWarning},
		{"pending status", map[string]string{"type": TypeApplicationStatusUpdate, "status": "pending"}, models.NotificationInfo},
		{"missing status", map[string]string{"type": TypeApplicationStatusUpdate}, models.NotificationInfo},
		{"other type", map[string]string{"type": "chat", "status": "approved"}, models.NotificationInfo},
		{"status without type", map[string]string{"status": "rejected"}, models.NotificationInfo},
		{"case sensitive", map[string]string{"type": TypeApplicationStatusUpdate, "status": "Approved"}, models.NotificationInfo},
		{"no data", nil, models.NotificationInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(payload.Payload{Data: tc.data})
			require.Equal(t, tc.want, got)
			require.NotEqual(t, models.NotificationError, got)
		})
	}
}
