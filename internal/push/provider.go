// Package push adapts the push provider and the backend association endpoint
// to the token manager.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/charlesng35/pushbell/internal/storage"
)

// ErrNoToken means the provider could not issue a delivery token.
var ErrNoToken = errors.New("push: no delivery token available")

const installationTokenKey = "push:installation_token"

// StaticProvider hands out a preconfigured token.
type StaticProvider struct {
	token string
}

// NewStaticProvider returns a provider for token. An empty token yields ErrNoToken.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

func (p *StaticProvider) Token(context.Context) (string, error) {
	if p == nil || p.token == "" {
		return "", ErrNoToken
	}
	return p.token, nil
}

// InstallationProvider issues one random token per installation and keeps it
// in the key-value backend so it survives restarts.
type InstallationProvider struct {
	kv storage.KV
}

// NewInstallationProvider constructs an InstallationProvider over kv.
func NewInstallationProvider(kv storage.KV) *InstallationProvider {
	return &InstallationProvider{kv: kv}
}

func (p *InstallationProvider) Token(ctx context.Context) (string, error) {
	if p == nil || p.kv == nil {
		return "", ErrNoToken
	}

	raw, ok, err := p.kv.Get(ctx, installationTokenKey)
	if err != nil {
		return "", fmt.Errorf("push: read installation token: %w", err)
	}
	if ok {
		var token string
		if err := json.Unmarshal(raw, &token); err == nil && token != "" {
			return token, nil
		}
	}

	token := uuid.NewString()
	encoded, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	if err := p.kv.Set(ctx, installationTokenKey, encoded); err != nil {
		return "", fmt.Errorf("push: store installation token: %w", err)
	}
	return token, nil
}
