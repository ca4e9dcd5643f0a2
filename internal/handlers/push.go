package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/middleware"
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/internal/token"
	appErrors "github.com/charlesng35/pushbell/pkg/errors"
	"github.com/charlesng35/pushbell/pkg/response"
)

const (
	channelForeground = "foreground"
	channelBackground = "background"
)

// TokenManager is the delivery-token surface exposed over HTTP.
type TokenManager interface {
	Token() models.DeliveryToken
	Permission(ctx context.Context) models.Permission
	CheckAndPrompt(ctx context.Context, sess token.Session) models.DeliveryToken
	ResolvePrompt(ctx context.Context, sess token.Session, granted bool) (models.DeliveryToken, error)
}

// Deliverer hands a push to a foreground listener.
type Deliverer interface {
	Deliver(userID string, p payload.Payload) error
}

// Enqueuer hands a push to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, p payload.Payload) (string, error)
}

// PushHandler exposes token registration and the local push relay.
type PushHandler struct {
	tokens     TokenManager
	foreground Deliverer
	background Enqueuer
}

// NewPushHandler constructs a PushHandler. Either delivery channel may be nil.
func NewPushHandler(tokens TokenManager, foreground Deliverer, background Enqueuer) (*PushHandler, error) {
	if tokens == nil {
		return nil, errors.New("push handler: token manager is required")
	}
	return &PushHandler{tokens: tokens, foreground: foreground, background: background}, nil
}

type permissionRequest struct {
	Granted *bool `json:"granted" validate:"required"`
}

type deliverRequest struct {
	Channel      string                `json:"channel" validate:"omitempty,oneof=foreground background"`
	Notification *payload.Notification `json:"notification"`
	Data         map[string]string     `json:"data"`
}

type pushStateResponse struct {
	Permission models.Permission    `json:"permission"`
	Token      models.DeliveryToken `json:"token"`
}

// State reports the permission and the registration snapshot.
func (h *PushHandler) State(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, pushStateResponse{
		Permission: h.tokens.Permission(c.Request.Context()),
		Token:      visibleToken(h.tokens.Token(), userID),
	})
}

// Check runs the permission check for the caller, registering when granted.
func (h *PushHandler) Check(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tok := h.tokens.CheckAndPrompt(ctx, sess)
	response.Success(c, http.StatusOK, pushStateResponse{Permission: h.tokens.Permission(ctx), Token: visibleToken(tok, sess.UserID)})
}

// Permission records the answer to the in-app permission prompt.
func (h *PushHandler) Permission(c *gin.Context) {
	sess, ok := requireSession(c)
	if !ok {
		return
	}

	var req permissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := c.Request.Context()
	tok, err := h.tokens.ResolvePrompt(ctx, sess, *req.Granted)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, "failed to store notification permission"))
		return
	}
	response.Success(c, http.StatusOK, pushStateResponse{Permission: h.tokens.Permission(ctx), Token: visibleToken(tok, sess.UserID)})
}

// Deliver relays a push to the caller on the requested channel. Foreground
// pushes only ever reach the caller's own listener.
func (h *PushHandler) Deliver(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req deliverRequest
	if !bindAndValidate(c, &req) {
		return
	}

	p := payload.Payload{Notification: req.Notification, Data: req.Data}

	switch req.Channel {
	case channelBackground:
		if h.background == nil {
			response.Error(c, appErrors.New("BACKGROUND_DISABLED", "Background delivery is not configured", http.StatusServiceUnavailable))
			return
		}
		id, err := h.background.Enqueue(c.Request.Context(), p)
		if err != nil {
			response.Error(c, appErrors.ErrUnavailable.WithInternal(err))
			return
		}
		response.Success(c, http.StatusAccepted, gin.H{"channel": channelBackground, "task_id": id})
	default:
		if h.foreground == nil {
			response.Error(c, appErrors.New("FOREGROUND_DISABLED", "Foreground delivery is not configured", http.StatusServiceUnavailable))
			return
		}
		if err := h.foreground.Deliver(userID, p); err != nil {
			switch {
			case errors.Is(err, listener.ErrNoListener):
				response.Error(c, appErrors.ErrConflict.WithInternal(err))
			case errors.Is(err, listener.ErrInboxFull):
				response.Error(c, appErrors.ErrRateLimit.WithInternal(err))
			default:
				response.Error(c, appErrors.Wrap(err, "failed to deliver push"))
			}
			return
		}
		response.Success(c, http.StatusAccepted, gin.H{"channel": channelForeground, "user_id": userID})
	}
}

// visibleToken hides a token that is associated with another user.
func visibleToken(tok models.DeliveryToken, userID string) models.DeliveryToken {
	if tok.AssociatedUserID == "" || tok.AssociatedUserID == userID {
		return tok
	}
	return models.DeliveryToken{RegistrationState: models.RegistrationUnregistered, UpdatedAt: tok.UpdatedAt}
}

func requireSession(c *gin.Context) (token.Session, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return token.Session{}, false
	}
	return token.Session{UserID: userID, AuthToken: middleware.AuthToken(c)}, true
}
