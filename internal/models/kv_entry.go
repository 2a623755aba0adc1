package models

import "time"

// KVEntry holds one namespaced value for the SQL storage backends. The script
// collection lives in a single row keyed by the configured storage key.
type KVEntry struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:longtext"`
	UpdatedAt time.Time
}

// TableName pins the table name independent of GORM's pluralisation rules.
func (KVEntry) TableName() string { return "kv_entries" }
