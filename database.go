package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const insertBatchSize = 500

type Database struct {
	db *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto migrate tables
	if err := db.AutoMigrate(allModels...); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &Database{db: db}, nil
}

// LoadUniverse returns the snapshot stored under key. The third result is
// false when nothing is stored for that key.
func (d *Database) LoadUniverse(key string) ([]UniverseEntry, time.Time, bool, error) {
	var snapshot UniverseSnapshot
	result := d.db.Where("cache_key = ?", key).First(&snapshot)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("failed to query universe snapshot: %w", result.Error)
	}

	var records []UniverseEntryRecord
	result = d.db.Where("cache_key = ?", key).
		Order("position ASC").
		Find(&records)
	if result.Error != nil {
		return nil, time.Time{}, false, fmt.Errorf("failed to query universe entries: %w", result.Error)
	}

	entries := make([]UniverseEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, UniverseEntry{
			Symbol: r.Symbol,
			Name:   r.Name,
			Kind:   Kind(r.Kind),
		})
	}

	return entries, snapshot.LoadedAt, true, nil
}

// SaveUniverse replaces whatever is stored under key with entries.
func (d *Database) SaveUniverse(key string, entries []UniverseEntry) error {
	records := make([]UniverseEntryRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, UniverseEntryRecord{
			CacheKey: key,
			Position: i,
			Symbol:   e.Symbol,
			Name:     e.Name,
			Kind:     string(e.Kind),
		})
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := deleteUniverse(tx, key); err != nil {
			return err
		}

		snapshot := UniverseSnapshot{
			CacheKey:   key,
			EntryCount: len(entries),
			LoadedAt:   time.Now(),
		}
		if err := tx.Create(&snapshot).Error; err != nil {
			return fmt.Errorf("failed to insert universe snapshot: %w", err)
		}

		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert universe entries: %w", err)
		}
		return nil
	})
}

func (d *Database) DeleteUniverse(key string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return deleteUniverse(tx, key)
	})
}

func deleteUniverse(tx *gorm.DB, key string) error {
	if err := tx.Where("cache_key = ?", key).Delete(&UniverseEntryRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete universe entries: %w", err)
	}
	if err := tx.Where("cache_key = ?", key).Delete(&UniverseSnapshot{}).Error; err != nil {
		return fmt.Errorf("failed to delete universe snapshot: %w", err)
	}
	return nil
}

// CacheKeys lists every stored snapshot key, newest first.
func (d *Database) CacheKeys() ([]string, error) {
	var keys []string
	result := d.db.Model(&UniverseSnapshot{}).
		Order("loaded_at DESC").
		Pluck("cache_key", &keys)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list universe keys: %w", result.Error)
	}
	return keys, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
