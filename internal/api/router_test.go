package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/pushbell/internal/auth"
	"github.com/charlesng35/pushbell/internal/handlers"
	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/notifier"
	"github.com/charlesng35/pushbell/internal/push"
	"github.com/charlesng35/pushbell/internal/realtime"
	"github.com/charlesng35/pushbell/internal/storage"
	"github.com/charlesng35/pushbell/internal/store"
	"github.com/charlesng35/pushbell/internal/token"
)

type routerFixture struct {
	router *gin.Engine
	jwt    *iauth.JWTService
	store  *store.Store
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	t.Cleanup(backend.Close)

	kv := storage.NewMemoryStore()
	s, err := store.New(kv)
	require.NoError(t, err)

	hub := realtime.NewHub()
	publisher := realtime.NewPublisher(hub)
	s.Subscribe(publisher)

	tokens, err := token.NewManager(token.NewKVPermissionStore(kv), publisher, push.NewStaticProvider("device-1"), push.NewBackendClient(backend.URL, nil))
	require.NoError(t, err)

	inbox := listener.NewInbox(8)
	runtime, err := notifier.New(s, tokens, notifier.InboxSources(inbox))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runtime.Close() })

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "test"})
	require.NoError(t, err)

	router, err := NewRouter(Dependencies{
		JWT:            jwtSvc,
		Store:          s,
		Tokens:         tokens,
		Runtime:        runtime,
		Hub:            hub,
		Foreground:     inbox,
		Checks:         map[string]handlers.Check{"storage": func(context.Context) error { return nil }},
		MetricsEnabled: true,
	})
	require.NoError(t, err)

	return routerFixture{router: router, jwt: jwtSvc, store: s}
}

func (f routerFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := f.jwt.IssueToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtectedRoutes(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/api/notifications", "/api/push/state", "/api/stream"} {
		w = f.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w = f.do(t, http.MethodGet, "/api/notifications", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ForegroundPushRecordsNotification(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/api/session", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/push/deliver", "u1", gin.H{
		"notification": gin.H{"title": "Application approved"},
		"data":         gin.H{"type": "application_status_update", "status": "approved"},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Eventually(t, func() bool {
		return len(f.store.List(context.Background(), "u1")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := f.store.List(context.Background(), "u1")[0]
	require.Equal(t, "Application approved", rec.Title)
	require.Equal(t, "success", string(rec.Type))

	w = f.do(t, http.MethodDelete, "/api/session", "u1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/api/push/deliver", "u1", gin.H{"notification": gin.H{"title": "late"}})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_PermissionGrantRegistersToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/api/push/permission", "u1", gin.H{"granted": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"registered"`)
	require.Contains(t, w.Body.String(), "device-1")
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	f.do(t, http.MethodGet, "/health", "", nil)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "pushbell_"), "expected pushbell metrics")
}
