package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/middleware"
	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/store"
	appErrors "github.com/charlesng35/pushbell/pkg/errors"
	"github.com/charlesng35/pushbell/pkg/logger"
	"github.com/charlesng35/pushbell/pkg/response"
)

// NotificationStore is the store surface the HTTP API needs.
type NotificationStore interface {
	List(ctx context.Context, userID string) []models.NotificationRecord
	UnreadCount(ctx context.Context, userID string) int
	Create(ctx context.Context, userID string, input store.CreateInput) (models.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
	ClearAll(ctx context.Context, userID string) error
}

// NotificationHandler exposes a user's local notification collection.
type NotificationHandler struct {
	store NotificationStore
	log   *zap.Logger
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(s NotificationStore) (*NotificationHandler, error) {
	if s == nil {
		return nil, errors.New("notification handler: store is required")
	}
	return &NotificationHandler{store: s, log: logger.WithModule("handlers")}, nil
}

type createNotificationRequest struct {
	Title   string            `json:"title" validate:"required,max=200"`
	Message string            `json:"message" validate:"max=2000"`
	Type    string            `json:"type" validate:"omitempty,oneof=success info warning error"`
	Data    map[string]string `json:"data"`
}

// List returns the collection newest first. ?unread=true keeps unread
// records only; ?limit=N truncates.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	records := h.store.List(c.Request.Context(), userID)
	meta := &response.Meta{Total: len(records), Unread: models.CountUnread(records)}

	if strings.EqualFold(c.Query("unread"), "true") {
		filtered := records[:0]
		for _, rec := range records {
			if !rec.Read {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}
	if limit := parseIntQuery(c, "limit", 0); limit > 0 && limit < len(records) {
		records = records[:limit]
	}

	response.SuccessWithMeta(c, http.StatusOK, records, meta)
}

// UnreadCount returns the derived unread count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": h.store.UnreadCount(c.Request.Context(), userID)})
}

// Create records a locally originated notification.
func (h *NotificationHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	kind := models.NotificationType(req.Type)
	if kind == "" {
		kind = models.NotificationInfo
	}
	rec, err := h.store.Create(c.Request.Context(), userID, store.CreateInput{
		Title:   strings.TrimSpace(req.Title),
		Message: strings.TrimSpace(req.Message),
		Type:    kind,
		Data:    req.Data,
	})
	if !h.tolerate(err) {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, rec)
}

// MarkRead flags one record as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, userID string) error {
		return h.store.MarkRead(ctx, userID, strings.TrimSpace(c.Param("id")))
	})
}

// MarkAllRead flags every record as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	h.mutate(c, h.store.MarkAllRead)
}

// Delete removes one record.
func (h *NotificationHandler) Delete(c *gin.Context) {
	h.mutate(c, func(ctx context.Context, userID string) error {
		return h.store.Delete(ctx, userID, strings.TrimSpace(c.Param("id")))
	})
}

// ClearAll removes every record.
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	h.mutate(c, h.store.ClearAll)
}

// mutate runs fn and answers with the updated unread count.
func (h *NotificationHandler) mutate(c *gin.Context, fn func(ctx context.Context, userID string) error) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := fn(ctx, userID); !h.tolerate(err) {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unread": h.store.UnreadCount(ctx, userID)})
}

// tolerate reports whether the request may still succeed. Persistence
// failures are not surfaced to the user; the in-memory view is current.
func (h *NotificationHandler) tolerate(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrPersist) {
		h.log.Warn("notification change not persisted", zap.Error(err))
		return true
	}
	return false
}

func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}
