package token

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/storage"
)

const permissionKey = "push:permission"

// KVPermissionStore keeps the installation's notification permission in the
// key-value backend.
type KVPermissionStore struct {
	kv storage.KV
}

// NewKVPermissionStore constructs a permission store over kv.
func NewKVPermissionStore(kv storage.KV) *KVPermissionStore {
	return &KVPermissionStore{kv: kv}
}

// Permission returns the stored permission, default when never asked.
func (s *KVPermissionStore) Permission(ctx context.Context) (models.Permission, error) {
	raw, ok, err := s.kv.Get(ctx, permissionKey)
	if err != nil {
		return models.PermissionDefault, fmt.Errorf("token: read permission: %w", err)
	}
	if !ok {
		return models.PermissionDefault, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return models.PermissionDefault, nil
	}
	return models.ParsePermission(value), nil
}

// SetPermission persists p.
func (s *KVPermissionStore) SetPermission(ctx context.Context, p models.Permission) error {
	raw, err := json.Marshal(string(p))
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, permissionKey, raw); err != nil {
		return fmt.Errorf("token: store permission: %w", err)
	}
	return nil
}
