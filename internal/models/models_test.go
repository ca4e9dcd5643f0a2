package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotificationTypeValid(t *testing.T) {
	for _, typ := range []NotificationType{NotificationSuccess, NotificationInfo, NotificationWarning, NotificationError} {
		require.True(t, typ.Valid(), typ)
	}
	require.False(t, NotificationType("critical").Valid())
	require.False(t, NotificationType("").Valid())
}

func TestCloneDetachesData(t *testing.T) {
	rec := NotificationRecord{ID: "1", Timestamp: time.Now(), Data: map[string]string{"type": "job"}}
	cpy := rec.Clone()
	cpy.Data["type"] = "changed"

	require.Equal(t, "job", rec.Data["type"])
}

func TestCountUnread(t *testing.T) {
	records := []NotificationRecord{{ID: "a"}, {ID: "b", Read: true}, {ID: "c"}}
	require.Equal(t, 2, CountUnread(records))
	require.Zero(t, CountUnread(nil))
}

func TestParsePermission(t *testing.T) {
	require.Equal(t, PermissionGranted, ParsePermission("granted"))
	require.Equal(t, PermissionDenied, ParsePermission("denied"))
	require.Equal(t, PermissionDefault, ParsePermission(""))
	require.Equal(t, PermissionDefault, ParsePermission("prompt"))
}
