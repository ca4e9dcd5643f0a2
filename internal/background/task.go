package background

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/charlesng35/pushbell/internal/payload"
)

// TypeDeliver is the asynq task type for background pushes.
const TypeDeliver = "push:deliver"

// NewDeliverTask wraps p as a fire-and-forget task.
func NewDeliverTask(p payload.Payload) (*asynq.Task, error) {
	raw, err := payload.Encode(p)
	if err != nil {
		return nil, fmt.Errorf("background: encode payload: %w", err)
	}
	return asynq.NewTask(TypeDeliver, raw, asynq.MaxRetry(0)), nil
}

// Dispatcher enqueues background deliveries.
type Dispatcher struct {
	client *asynq.Client
}

// NewDispatcher connects to the queue's Redis instance.
func NewDispatcher(opt asynq.RedisConnOpt) *Dispatcher {
	return &Dispatcher{client: asynq.NewClient(opt)}
}

// Enqueue schedules p for presentation.
func (d *Dispatcher) Enqueue(ctx context.Context, p payload.Payload) (string, error) {
	task, err := NewDeliverTask(p)
	if err != nil {
		return "", err
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("background: enqueue: %w", err)
	}
	return info.ID, nil
}

// Close releases the client connection.
func (d *Dispatcher) Close() error {
	return d.client.Close()
}
