package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/payload"
	"github.com/charlesng35/pushbell/pkg/logger"
)

// ErrStreamClosed is returned by Receive after the remote stream ends.
var ErrStreamClosed = errors.New("realtime: push stream closed")

type inboundFrame struct {
	Stream string          `json:"stream"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Client reads foreground pushes from a remote websocket stream.
type Client struct {
	conn   *websocket.Conn
	frames chan payload.Payload
	done   chan struct{}
	log    *zap.Logger

	mu   sync.Mutex
	err  error
	once sync.Once
}

// Dial connects to url, authenticating with the bearer token when given.
func Dial(ctx context.Context, url, bearer string) (*Client, error) {
	header := http.Header{}
	if bearer != "" {
		header.Set("Authorization", "Bearer "+bearer)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("realtime: dial push stream: %w", err)
	}

	c := &Client{
		conn:   conn,
		frames: make(chan payload.Payload, defaultBufferSize),
		done:   make(chan struct{}),
		log:    logger.WithModule("realtime.client"),
	}
	go c.readLoop()
	return c, nil
}

// Receive returns the next push payload.
func (c *Client) Receive(ctx context.Context) (payload.Payload, error) {
	select {
	case p, ok := <-c.frames:
		if !ok {
			return payload.Payload{}, c.closeErr()
		}
		return p, nil
	case <-ctx.Done():
		return payload.Payload{}, ctx.Err()
	}
}

// Close terminates the connection.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer close(c.frames)

	c.conn.SetReadLimit(maxMessageSize)
	for {
		var frame inboundFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.setErr(err)
			return
		}
		if frame.Event != EventPush || len(frame.Data) == 0 {
			continue
		}
		p, err := payload.Decode(frame.Data)
		if err != nil {
			c.log.Warn("skipping malformed push frame", zap.Error(err))
			continue
		}
		select {
		case c.frames <- p:
		case <-c.done:
			return
		}
	}
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		c.err = ErrStreamClosed
	default:
		c.err = fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		return ErrStreamClosed
	}
	return c.err
}
