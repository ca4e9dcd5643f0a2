package push

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// TokenSource yields a candidate delivery token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Sender is the subset of *messaging.Client used here.
type Sender interface {
	SendDryRun(ctx context.Context, message *messaging.Message) (string, error)
}

// FirebaseProvider validates tokens from a source against Firebase Cloud
// Messaging with a dry-run send before handing them out.
type FirebaseProvider struct {
	source TokenSource
	sender Sender
}

// NewFirebaseProvider wraps source. A nil sender disables validation.
func NewFirebaseProvider(source TokenSource, sender Sender) *FirebaseProvider {
	return &FirebaseProvider{source: source, sender: sender}
}

func (p *FirebaseProvider) Token(ctx context.Context) (string, error) {
	if p == nil || p.source == nil {
		return "", ErrNoToken
	}
	token, err := p.source.Token(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrNoToken
	}
	if p.sender == nil {
		return token, nil
	}

	_, err = p.sender.SendDryRun(ctx, &messaging.Message{
		Token: token,
		Data:  map[string]string{"type": "token_probe"},
	})
	switch {
	case err == nil:
		return token, nil
	case messaging.IsUnregistered(err), messaging.IsInvalidArgument(err):
		return "", fmt.Errorf("%w: %v", ErrNoToken, err)
	default:
		return "", fmt.Errorf("push: validate token: %w", err)
	}
}

// NewFirebaseMessaging builds a messaging client from a service account file.
func NewFirebaseMessaging(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	credentialsFile = strings.TrimSpace(credentialsFile)
	if credentialsFile == "" {
		return nil, errors.New("push: firebase credentials file is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("push: initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("push: get messaging client: %w", err)
	}
	return client, nil
}
