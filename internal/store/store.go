// Package store keeps each user's local notification collection and persists
// it to a key-value backend after every mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/pushbell/internal/models"
	"github.com/charlesng35/pushbell/internal/storage"
	"github.com/charlesng35/pushbell/pkg/logger"
	"github.com/charlesng35/pushbell/pkg/metrics"
)

// ErrPersist reports that a mutation was applied in memory but could not be
// written to the backend.
var ErrPersist = errors.New("store: persist notifications")

const keyPrefix = "notifications:"

// Key returns the backend key holding a user's collection.
func Key(userID string) string {
	return keyPrefix + userID
}

// CreateInput describes a new notification record.
type CreateInput struct {
	Title   string
	Message string
	Type    models.NotificationType
	Data    map[string]string
}

// Observer is told about every change to a user's collection. Records are
// sorted newest first and owned by the observer.
type Observer interface {
	NotificationsChanged(userID string, records []models.NotificationRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(userID string, records []models.NotificationRecord)

func (f ObserverFunc) NotificationsChanged(userID string, records []models.NotificationRecord) {
	f(userID, records)
}

// Store holds in-memory views of loaded users' collections.
type Store struct {
	kv  storage.KV
	log *zap.Logger

	now         func() time.Time
	newID       func(time.Time) string
	dedupWindow time.Duration

	mu        sync.Mutex
	views     map[string][]models.NotificationRecord
	recent    map[string]map[uint64]dedupEntry
	observers []Observer
}

// New constructs a Store over kv.
func New(kv storage.KV, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("store: key-value backend is required")
	}
	s := &Store{
		kv:     kv,
		log:    logger.WithModule("store"),
		now:    time.Now,
		newID:  defaultID,
		views:  make(map[string][]models.NotificationRecord),
		recent: make(map[string]map[uint64]dedupEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Subscribe registers an observer for subsequent changes.
func (s *Store) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Load reads the user's collection from the backend, replacing any in-memory
// view. Missing or unreadable data yields an empty collection.
func (s *Store) Load(ctx context.Context, userID string) []models.NotificationRecord {
	if blank(userID) {
		return []models.NotificationRecord{}
	}

	s.mu.Lock()
	records := s.read(ctx, userID)
	s.views[userID] = records
	out := sortedCopy(records)
	s.mu.Unlock()

	s.notify(userID, out)
	return out
}

// Create appends a new unread record. Unknown types are stored as info.
func (s *Store) Create(ctx context.Context, userID string, input CreateInput) (models.NotificationRecord, error) {
	if blank(userID) {
		return models.NotificationRecord{}, nil
	}

	kind := input.Type
	if !kind.Valid() {
		kind = models.NotificationInfo
	}

	s.mu.Lock()
	records := s.view(ctx, userID)
	now := s.now()

	hash, dedup := s.dedupHash(input, kind)
	if dedup {
		if existing, ok := s.duplicateOf(userID, hash, records, now); ok {
			s.mu.Unlock()
			s.log.Debug("duplicate notification suppressed", zap.String("user_id", userID), zap.String("id", existing.ID))
			return existing, nil
		}
	}

	record := models.NotificationRecord{
		ID:        s.newID(now),
		Title:     input.Title,
		Message:   input.Message,
		Type:      kind,
		Read:      false,
		Timestamp: now,
	}
	if len(input.Data) > 0 {
		record.Data = make(map[string]string, len(input.Data))
		for k, v := range input.Data {
			record.Data[k] = v
		}
	}

	records = append(records, record)
	s.views[userID] = records
	if dedup {
		s.remember(userID, hash, record.ID, now)
	}
	err := s.persist(ctx, userID, records)
	out := sortedCopy(records)
	s.mu.Unlock()

	metrics.RecordsCreated.WithLabelValues(string(kind)).Inc()
	s.notify(userID, out)
	return record.Clone(), err
}

// MarkRead flags one record as read. Unknown ids are ignored.
func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	return s.mutate(ctx, userID, func(records []models.NotificationRecord) ([]models.NotificationRecord, bool) {
		idx := slices.IndexFunc(records, func(r models.NotificationRecord) bool { return r.ID == id })
		if idx < 0 || records[idx].Read {
			return records, false
		}
		records[idx].Read = true
		return records, true
	})
}

// MarkAllRead flags every record as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) error {
	return s.mutate(ctx, userID, func(records []models.NotificationRecord) ([]models.NotificationRecord, bool) {
		changed := false
		for i := range records {
			if !records[i].Read {
				records[i].Read = true
				changed = true
			}
		}
		return records, changed
	})
}

// Delete removes one record. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	return s.mutate(ctx, userID, func(records []models.NotificationRecord) ([]models.NotificationRecord, bool) {
		idx := slices.IndexFunc(records, func(r models.NotificationRecord) bool { return r.ID == id })
		if idx < 0 {
			return records, false
		}
		return slices.Delete(records, idx, idx+1), true
	})
}

// ClearAll removes every record of the user.
func (s *Store) ClearAll(ctx context.Context, userID string) error {
	return s.mutate(ctx, userID, func(records []models.NotificationRecord) ([]models.NotificationRecord, bool) {
		if len(records) == 0 {
			return records, false
		}
		return []models.NotificationRecord{}, true
	})
}

// List returns the user's records sorted by timestamp, newest first.
func (s *Store) List(ctx context.Context, userID string) []models.NotificationRecord {
	if blank(userID) {
		return []models.NotificationRecord{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopy(s.view(ctx, userID))
}

// UnreadCount counts unread records at call time.
func (s *Store) UnreadCount(ctx context.Context, userID string) int {
	if blank(userID) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CountUnread(s.view(ctx, userID))
}

// Teardown drops the in-memory view of a user. Persisted data is kept.
func (s *Store) Teardown(userID string) {
	s.mu.Lock()
	delete(s.views, userID)
	delete(s.recent, userID)
	s.mu.Unlock()
}

// Loaded reports whether the user currently has an in-memory view.
func (s *Store) Loaded(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.views[userID]
	return ok
}

func (s *Store) mutate(ctx context.Context, userID string, fn func([]models.NotificationRecord) ([]models.NotificationRecord, bool)) error {
	if blank(userID) {
		return nil
	}

	s.mu.Lock()
	records, changed := fn(s.view(ctx, userID))
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.views[userID] = records
	err := s.persist(ctx, userID, records)
	out := sortedCopy(records)
	s.mu.Unlock()

	s.notify(userID, out)
	return err
}

// view returns the cached collection, loading it on first use. Callers hold mu.
func (s *Store) view(ctx context.Context, userID string) []models.NotificationRecord {
	if records, ok := s.views[userID]; ok {
		return records
	}
	records := s.read(ctx, userID)
	s.views[userID] = records
	return records
}

func (s *Store) read(ctx context.Context, userID string) []models.NotificationRecord {
	raw, ok, err := s.kv.Get(ctx, Key(userID))
	if err != nil {
		s.log.Warn("failed to read notifications, starting empty", zap.String("user_id", userID), zap.Error(err))
		metrics.StoreLoadFallbacks.Inc()
		return []models.NotificationRecord{}
	}
	if !ok || len(raw) == 0 {
		return []models.NotificationRecord{}
	}

	var records []models.NotificationRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		s.log.Warn("stored notifications are corrupt, starting empty", zap.String("user_id", userID), zap.Error(err))
		metrics.StoreLoadFallbacks.Inc()
		return []models.NotificationRecord{}
	}
	if records == nil {
		return []models.NotificationRecord{}
	}
	for i := range records {
		if !records[i].Type.Valid() {
			records[i].Type = models.NotificationInfo
		}
	}
	return records
}

func (s *Store) persist(ctx context.Context, userID string, records []models.NotificationRecord) error {
	raw, err := json.Marshal(records)
	if err == nil {
		err = s.kv.Set(ctx, Key(userID), raw)
	}
	if err != nil {
		s.log.Error("failed to persist notifications", zap.String("user_id", userID), zap.Int("count", len(records)), zap.Error(err))
		metrics.PersistFailures.Inc()
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) notify(userID string, records []models.NotificationRecord) {
	s.mu.Lock()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.NotificationsChanged(userID, cloneRecords(records))
	}
}

// sortedCopy orders newest first; records sharing a timestamp keep the most
// recently inserted first.
func sortedCopy(records []models.NotificationRecord) []models.NotificationRecord {
	out := cloneRecords(records)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b models.NotificationRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

func cloneRecords(records []models.NotificationRecord) []models.NotificationRecord {
	out := make([]models.NotificationRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func blank(userID string) bool {
	return strings.TrimSpace(userID) == ""
}
