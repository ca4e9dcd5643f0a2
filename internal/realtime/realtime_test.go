package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/toast"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func serveHub(t *testing.T, hub *Hub, userID string, streams ...string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(userID, streams, nil, w, r)
	}))
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPublisherNotificationsChanged(t *testing.T) {
	hub := NewHub()
	conn := serveHub(t, hub, "u1", StreamNotifications)
	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications, "u1") == 1 }, time.Second, 5*time.Millisecond)

	pub := NewPublisher(hub)
	pub.NotificationsChanged("u2", []models.NotificationRecord{{ID: "other"}})
	pub.NotificationsChanged("u1", []models.NotificationRecord{{ID: "a"}, {ID: "b", Read: true}})

	msg := readMessage(t, conn)
	require.Equal(t, StreamNotifications, msg.Stream)
	require.Equal(t, EventNotificationsChanged, msg.Event)
	require.EqualValues(t, 2, msg.Meta["total"])
	require.EqualValues(t, 1, msg.Meta["unread"])
}

func TestPublisherToastsAndPrompt(t *testing.T) {
	hub := NewHub()
	conn := serveHub(t, hub, "u1", StreamToasts, StreamPush)
	require.Eventually(t, func() bool { return hub.Subscribers(StreamPush, "u1") == 1 }, time.Second, 5*time.Millisecond)

	pub := NewPublisher(hub)
	pub.ShowToast("u1", toast.Toast{ID: "n1", Title: "Hi"})
	require.Equal(t, EventToastShow, readMessage(t, conn).Event)

	pub.HideToast("u1", "n1")
	hide := readMessage(t, conn)
	require.Equal(t, EventToastHide, hide.Event)
	require.Equal(t, map[string]any{"id": "n1"}, hide.Data)

	pub.PromptPermission(context.Background(), "u1")
	require.Equal(t, EventPermissionPrompt, readMessage(t, conn).Event)
}

func TestControlSubscribeAndPing(t *testing.T) {
	hub := NewHub()
	conn := serveHub(t, hub, "u1")

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "subscribe", "streams": []string{" Notifications "}}))
	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications, "u1") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "ping"}))
	require.Equal(t, "pong", readMessage(t, conn).Event)

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "unsubscribe", "streams": []string{"notifications"}}))
	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications, "u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestAllowedStreamsAreEnforced(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve("u1", []string{"secret", StreamToasts}, map[string]struct{}{StreamToasts: {}}, w, r)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Subscribers(StreamToasts, "u1") == 1 }, time.Second, 5*time.Millisecond)
	require.Zero(t, hub.Subscribers("secret", "u1"))
}

func TestDisconnectUser(t *testing.T) {
	hub := NewHub()
	serveHub(t, hub, "u1", StreamNotifications)
	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications, "u1") == 1 }, time.Second, 5*time.Millisecond)

	hub.DisconnectUser("u1")
	require.Eventually(t, func() bool { return hub.Subscribers(StreamNotifications, "u1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestClientReceivesPushFrames(t *testing.T) {
	authCh := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCh <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(Message{Stream: StreamPush, Event: "pong"})
		_ = conn.WriteJSON(map[string]any{"stream": StreamPush, "event": EventPush, "data": map[string]any{
			"notification": map[string]any{"title": "Approved"},
			"data":         map[string]any{"type": "application_status_update", "status": "approved"},
		}})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(srv.Close)

	client, err := Dial(context.Background(), wsURL(srv), "jwt")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	p, err := client.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "Approved", p.Title())
	require.Equal(t, "approved", p.Get("status"))
	require.Equal(t, "Bearer jwt", <-authCh)

	_, err = client.Receive(ctx)
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestHostHelpers(t *testing.T) {
	require.Equal(t, "example.com", hostWithoutPort("https://example.com:8443"))
	require.Equal(t, "127.0.0.1", hostWithoutPort("127.0.0.1:80"))
	require.True(t, isLoopback("localhost"))
	require.True(t, isLoopback("::1"))
	require.False(t, isLoopback("example.com"))
	require.Equal(t, []string{"a", "b"}, uniqueStreams([]string{" A", "b", "a", ""}))
}
