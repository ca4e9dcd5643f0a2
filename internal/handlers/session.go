package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/token"
	appErrors "github.com/charlesng35/pushbell/pkg/errors"
	"github.com/charlesng35/pushbell/pkg/response"
)

// SessionRuntime starts and stops per-user notification sessions.
type SessionRuntime interface {
	Login(ctx context.Context, sess token.Session) (models.DeliveryToken, error)
	Logout(userID string) error
}

// SessionHandler maps login and logout onto the notification runtime.
type SessionHandler struct {
	runtime SessionRuntime
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(runtime SessionRuntime) (*SessionHandler, error) {
	if runtime == nil {
		return nil, errors.New("session handler: runtime is required")
	}
	return &SessionHandler{runtime: runtime}, nil
}

// Login loads the caller's notifications and arms the foreground listener.
func (h *SessionHandler) Login(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	tok, err := h.runtime.Login(c.Request.Context(), sess)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to start notification session"))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user_id": sess.UserID, "token": tok})
}

// Logout tears the caller's session down.
func (h *SessionHandler) Logout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.runtime.Logout(userID); err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to stop notification session"))
		return
	}
	c.Status(http.StatusNoContent)
}
