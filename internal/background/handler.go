// Package background presents pushes while the application is not open. It
// runs in the worker process and never touches the notification store.
package background

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/pkg/logger"
	"github.com/charlesng35/pushbell/pkg/metrics"
)

// DefaultTarget is where a click on a background notification navigates when
// the payload names no link.
const DefaultTarget = "/notifications"

// Presentation is what the OS notification shows.
type Presentation struct {
	Title  string
	Body   string
	Data   map[string]string
	Target string
}

// Presenter shows an OS-level notification.
type Presenter interface {
	Present(ctx context.Context, p Presentation) error
}

// Handler turns payloads into presentations.
type Handler struct {
	presenter Presenter
	log       *zap.Logger
}

// NewHandler returns a Handler using presenter; nil falls back to logging.
func NewHandler(presenter Presenter) *Handler {
	log := logger.WithModule("background")
	if presenter == nil {
		presenter = NewLogPresenter(log)
	}
	return &Handler{presenter: presenter, log: log}
}

// Build normalises p into a Presentation.
func Build(p payload.Payload) Presentation {
	target := strings.TrimSpace(p.Get("link"))
	if target == "" {
		target = DefaultTarget
	}
	return Presentation{
		Title:  p.Title(),
		Body:   p.Body(),
		Data:   p.DataCopy(),
		Target: target,
	}
}

// Handle presents p. Presentation failures are logged and dropped.
func (h *Handler) Handle(ctx context.Context, p payload.Payload) {
	metrics.PushesReceived.WithLabelValues("background").Inc()

	pres := Build(p)
	if err := h.presenter.Present(ctx, pres); err != nil {
		metrics.BackgroundPresentations.WithLabelValues("error").Inc()
		h.log.Warn("failed to present background notification",
			zap.String("title", pres.Title),
			zap.Error(err),
		)
		return
	}
	metrics.BackgroundPresentations.WithLabelValues("ok").Inc()
	h.log.Debug("background notification presented", zap.String("title", pres.Title), zap.String("target", pres.Target))
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	p, err := payload.Decode(task.Payload())
	if err != nil {
		h.log.Warn("discarding malformed background payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	h.Handle(ctx, p)
	return nil
}

// NewServeMux routes deliver tasks to h.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDeliver, h)
	return mux
}
