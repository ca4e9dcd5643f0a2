package notifier

import (
	"context"
	"errors"
	"strings"

	"github.com/charlesng35/pushbell/internal/listener"
	"github.com/charlesng35/pushbell/internal/realtime"
	"github.com/charlesng35/pushbell/internal/token"
)

type inboxSource struct {
	*listener.ChanSource
	inbox  *listener.Inbox
	userID string
}

func (s *inboxSource) Close() error {
	s.inbox.Remove(s.userID)
	return nil
}

// InboxSources feeds each session from an in-process inbox.
func InboxSources(inbox *listener.Inbox) SourceFactory {
	return func(_ context.Context, sess token.Session) (listener.Source, error) {
		return &inboxSource{ChanSource: inbox.Source(sess.UserID), inbox: inbox, userID: sess.UserID}, nil
	}
}

// StreamSources feeds each session from a remote websocket push stream,
// authenticated with the session token.
func StreamSources(url string) SourceFactory {
	return func(ctx context.Context, sess token.Session) (listener.Source, error) {
		if strings.TrimSpace(url) == "" {
			return nil, errors.New("notifier: foreground stream url is empty")
		}
		return realtime.Dial(ctx, url, sess.AuthToken)
	}
}
