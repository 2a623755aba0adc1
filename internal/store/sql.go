package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/scriptyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLPersister stores the collection as a JSON value in the kv_entries table.
// The table must already be migrated (see db.AutoMigrate).
type SQLPersister struct {
	db        *gorm.DB
	key       string
	closeFunc func() error
}

// NewSQLPersister wraps an open GORM connection. closeFunc, if non-nil, is
// called by Close.
func NewSQLPersister(db *gorm.DB, key string, closeFunc func() error) *SQLPersister {
	return &SQLPersister{db: db, key: key, closeFunc: closeFunc}
}

func (p *SQLPersister) Load(ctx context.Context) ([]models.Script, error) {
	var entry models.KVEntry
	err := p.db.WithContext(ctx).Where(&models.KVEntry{Key: p.key}).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sql key %s: %w", p.key, ErrNotFound)
		}
		return nil, fmt.Errorf("sql: load %s: %w", p.key, err)
	}
	return decode([]byte(entry.Value))
}

func (p *SQLPersister) Save(ctx context.Context, scripts []models.Script) error {
	data, err := encode(scripts)
	if err != nil {
		return err
	}
	entry := models.KVEntry{Key: p.key, Value: string(data)}
	result := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return fmt.Errorf("sql: save %s: %w", p.key, result.Error)
	}
	return nil
}

func (p *SQLPersister) Close() error {
	if p.closeFunc == nil {
		return nil
	}
	return p.closeFunc()
}
