package listener

import (
	"context"
	"errors"
	"sync"

	"github.com/charlesng35/pushbell/internal/payload"
)

// ErrSourceClosed is returned once a source has no more payloads.
var ErrSourceClosed = errors.New("listener: source closed")

// ChanSource reads payloads from a channel.
type ChanSource struct {
	ch <-chan payload.Payload
}

// NewChanSource wraps ch. Closing ch ends the source.
func NewChanSource(ch <-chan payload.Payload) *ChanSource {
	return &ChanSource{ch: ch}
}

func (s *ChanSource) Receive(ctx context.Context) (payload.Payload, error) {
	select {
	case p, ok := <-s.ch:
		if !ok {
			return payload.Payload{}, ErrSourceClosed
		}
		return p, nil
	case <-ctx.Done():
		return payload.Payload{}, ctx.Err()
	}
}

var (
	// ErrNoListener means the user has no foreground listener to deliver to.
	ErrNoListener = errors.New("listener: no foreground listener for user")
	// ErrInboxFull means the user's pending pushes exceed the inbox size.
	ErrInboxFull = errors.New("listener: inbox full")
)

const defaultInboxSize = 32

// Inbox routes in-process pushes to per-user sources.
type Inbox struct {
	mu    sync.Mutex
	boxes map[string]chan payload.Payload
	size  int
}

// NewInbox returns an Inbox buffering size pushes per user.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = defaultInboxSize
	}
	return &Inbox{boxes: make(map[string]chan payload.Payload), size: size}
}

// Source returns the user's source, creating it on first use.
func (i *Inbox) Source(userID string) *ChanSource {
	i.mu.Lock()
	defer i.mu.Unlock()
	box, ok := i.boxes[userID]
	if !ok {
		box = make(chan payload.Payload, i.size)
		i.boxes[userID] = box
	}
	return NewChanSource(box)
}

// Deliver queues p for userID without blocking.
func (i *Inbox) Deliver(userID string, p payload.Payload) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	box, ok := i.boxes[userID]
	if !ok {
		return ErrNoListener
	}
	select {
	case box <- p:
		return nil
	default:
		return ErrInboxFull
	}
}

// Remove closes the user's source. Pending pushes are dropped.
func (i *Inbox) Remove(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if box, ok := i.boxes[userID]; ok {
		close(box)
		delete(i.boxes, userID)
	}
}
