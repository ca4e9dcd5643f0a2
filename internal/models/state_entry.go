package models

import (
	"time"

	"gorm.io/datatypes"
)

// StateEntry is one persisted key of local client state (a user's notification
// collection, the installation permission) when the SQL backend is used.
type StateEntry struct {
	Key       string         `gorm:"primaryKey;size:256"`
	Value     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName pins the table name independent of gorm's pluralisation rules.
func (StateEntry) TableName() string {
	return "state_entries"
}
