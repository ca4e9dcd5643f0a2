package background

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// LogPresenter writes presentations to the log.
type LogPresenter struct {
	log *zap.Logger
}

// NewLogPresenter returns a presenter logging through log.
func NewLogPresenter(log *zap.Logger) *LogPresenter {
	return &LogPresenter{log: log}
}

func (p *LogPresenter) Present(_ context.Context, pres Presentation) error {
	p.log.Info("notification",
		zap.String("title", pres.Title),
		zap.String("body", pres.Body),
		zap.String("target", pres.Target),
		zap.Any("data", pres.Data),
	)
	return nil
}

// DesktopPresenter shows notifications with notify-send.
type DesktopPresenter struct {
	command string
	appName string
}

// NewDesktopPresenter locates the notify-send binary.
func NewDesktopPresenter(appName string) (*DesktopPresenter, error) {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return nil, fmt.Errorf("background: notify-send not available: %w", err)
	}
	if appName == "" {
		appName = "pushbell"
	}
	return &DesktopPresenter{command: path, appName: appName}, nil
}

func (p *DesktopPresenter) Present(ctx context.Context, pres Presentation) error {
	args := []string{"--app-name", p.appName, "--hint", "string:x-pushbell-target:" + pres.Target, pres.Title}
	if pres.Body != "" {
		args = append(args, pres.Body)
	}
	out, err := exec.CommandContext(ctx, p.command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NewPresenter picks a presenter by name ("desktop" or "log"). Desktop falls
// back to logging when notify-send is missing.
func NewPresenter(name, appName string, log *zap.Logger) Presenter {
	if strings.EqualFold(strings.TrimSpace(name), "desktop") {
		desktop, err := NewDesktopPresenter(appName)
		if err == nil {
			return desktop
		}
		log.Warn("desktop presenter unavailable, falling back to log presenter", zap.Error(err))
	}
	return NewLogPresenter(log)
}
