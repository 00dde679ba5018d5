package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/storefront/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBSessionBlob is the database model for a persisted session blob
type DBSessionBlob struct {
	Key       string `gorm:"column:session_key;primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBSessionBlob) TableName() string {
	return "session_blobs"
}

// SQLSessionStore implements domain.SessionStore using GORM. It is the alternative durable backend.
type SQLSessionStore struct {
	db *gorm.DB
}

// NewSQLSessionStore creates a store over an already migrated database
func NewSQLSessionStore(db *gorm.DB) *SQLSessionStore {
	return &SQLSessionStore{db: db}
}

// Get implements domain.SessionStore
func (r *SQLSessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob DBSessionBlob
	err := r.db.WithContext(ctx).Where("session_key = ?", key).First(&blob).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStoreEntryNotFound
		}
		return nil, fmt.Errorf("sql get %s: %w", key, err)
	}
	return blob.Value, nil
}

// Set implements domain.SessionStore
func (r *SQLSessionStore) Set(ctx context.Context, key string, value []byte) error {
	blob := &DBSessionBlob{Key: key, Value: value, UpdatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(blob).Error
	if err != nil {
		return fmt.Errorf("sql set %s: %w", key, err)
	}
	return nil
}

// Delete implements domain.SessionStore
func (r *SQLSessionStore) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("session_key = ?", key).Delete(&DBSessionBlob{}).Error
}

var _ domain.SessionStore = (*SQLSessionStore)(nil)
