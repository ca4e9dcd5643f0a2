// Command pushbell-worker processes background pushes from the asynq queue
// and presents them as system notifications. The enqueue subcommand puts a
// push on the queue for local testing.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/app"
	"github.com/charlesng35/pushbell/internal/background"
	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "enqueue" {
		return runEnqueue(ctx, args[1:])
	}
	return runWorker(ctx, args)
}

func runWorker(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pushbell-worker", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	configPath := fs.String("config", "", "Path to configuration directory or file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("worker")
	handler := background.NewHandler(background.NewPresenter(cfg.Background.Presenter, cfg.Background.AppName, log))

	concurrency := cfg.Background.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(cfg.Background.RedisClientOpt(), asynq.Config{
		Concurrency: concurrency,
		Logger:      log.Sugar(),
	})

	if err := srv.Start(background.NewServeMux(handler)); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	log.Info("worker started", zap.String("addr", cfg.Background.Redis.Address), zap.Int("concurrency", concurrency))

	<-ctx.Done()
	log.Info("shutdown signal received")
	srv.Shutdown()
	return nil
}

func runEnqueue(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pushbell-worker enqueue", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	configPath := fs.String("config", "", "Path to configuration directory or file")
	title := fs.String("title", "", "Notification title")
	body := fs.String("body", "", "Notification body")
	data := fs.String("data", "", "Data payload as a JSON object")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := buildPayload(*title, *body, *data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	dispatcher := background.NewDispatcher(cfg.Background.RedisClientOpt())
	defer dispatcher.Close()

	id, err := dispatcher.Enqueue(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, id)
	return nil
}

func buildPayload(title, body, data string) (payload.Payload, error) {
	var p payload.Payload
	if title != "" || body != "" {
		p.Notification = &payload.Notification{}
		if title != "" {
			p.Notification.Title = &title
		}
		if body != "" {
			p.Notification.Body = &body
		}
	}
	if strings.TrimSpace(data) != "" {
		if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
			return payload.Payload{}, fmt.Errorf("parse -data: %w", err)
		}
	}
	return p, nil
}

func loadConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}
