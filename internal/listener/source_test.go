package listener

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/pushbell/internal/payload"
)

func TestInboxDelivery(t *testing.T) {
	inbox := NewInbox(1)
	require.ErrorIs(t, inbox.Deliver("u1", payload.Payload{}), ErrNoListener)

	src := inbox.Source("u1")
	require.NoError(t, inbox.Deliver("u1", payload.Payload{Data: map[string]string{"k": "v"}}))
	require.ErrorIs(t, inbox.Deliver("u1", payload.Payload{}), ErrInboxFull)

	p, err := src.Receive(context.Background())
	require.NoError(t, err)
	require.Equal(t, "v", p.Get("k"))

	inbox.Remove("u1")
	_, err = src.Receive(context.Background())
	require.ErrorIs(t, err, ErrSourceClosed)
	require.ErrorIs(t, inbox.Deliver("u1", payload.Payload{}), ErrNoListener)
}
