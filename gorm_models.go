package main

import (
	"time"
)

// GORM models for the database

// UniverseSnapshot records one persisted universe. The cache key carries a
// version tag; a change to the cached shape uses a new key instead of
// migrating old rows.
type UniverseSnapshot struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CacheKey   string    `gorm:"uniqueIndex;not null" json:"cacheKey"`
	EntryCount int       `gorm:"not null" json:"entryCount"`
	LoadedAt   time.Time `gorm:"not null" json:"loadedAt"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for UniverseSnapshot
func (UniverseSnapshot) TableName() string {
	return "universe_snapshots"
}

// UniverseEntryRecord is one symbol of a stored universe. Position keeps the
// load order, which decides stock/ETF precedence.
type UniverseEntryRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CacheKey string `gorm:"index:idx_universe_entries_key_position,priority:1;not null" json:"cacheKey"`
	Position int    `gorm:"index:idx_universe_entries_key_position,priority:2;not null" json:"position"`
	Symbol   string `gorm:"not null" json:"symbol"`
	Name     string `gorm:"" json:"name"`
	Kind     string `gorm:"not null" json:"kind"`
}

// TableName specifies the table name for UniverseEntryRecord
func (UniverseEntryRecord) TableName() string {
	return "universe_entries"
}

// Get all model types for auto migration
var allModels = []interface{}{
	&UniverseSnapshot{},
	&UniverseEntryRecord{},
}
