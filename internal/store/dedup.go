package store

import (
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/charlesng35/pushbell/internal/models"
)

type dedupEntry struct {
	id string
	at time.Time
}

// dedupHash fingerprints the record content. Callers hold mu.
func (s *Store) dedupHash(input CreateInput, kind models.NotificationType) (uint64, bool) {
	if s.dedupWindow <= 0 {
		return 0, false
	}

	d := xxhash.New()
	_, _ = d.WriteString(input.Title)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(input.Message)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(kind))
	keys := make([]string, 0, len(input.Data))
	for k := range input.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(input.Data[k])
	}
	return d.Sum64(), true
}

func (s *Store) duplicateOf(userID string, hash uint64, records []models.NotificationRecord, now time.Time) (models.NotificationRecord, bool) {
	entry, ok := s.recent[userID][hash]
	if !ok || now.Sub(entry.at) > s.dedupWindow {
		return models.NotificationRecord{}, false
	}
	idx := slices.IndexFunc(records, func(r models.NotificationRecord) bool { return r.ID == entry.id })
	if idx < 0 {
		return models.NotificationRecord{}, false
	}
	return records[idx].Clone(), true
}

func (s *Store) remember(userID string, hash uint64, id string, now time.Time) {
	seen := s.recent[userID]
	if seen == nil {
		seen = make(map[uint64]dedupEntry)
		s.recent[userID] = seen
	}
	for key, entry := range seen {
		if now.Sub(entry.at) > s.dedupWindow {
			delete(seen, key)
		}
	}
	seen[hash] = dedupEntry{id: id, at: now}
}
