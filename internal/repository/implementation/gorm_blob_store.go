package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felixniemeyer/ai-mediator/internal/model"
	"github.com/felixniemeyer/ai-mediator/internal/repository/contract"
)

// GormBlobStore persists blobs in a single key/value table. The upsert
// replaces the whole row, which satisfies the atomic write guarantee; rows
// need no scope structure, keys are flat.
type GormBlobStore struct {
	db *gorm.DB
}

var _ contract.BlobStore = (*GormBlobStore)(nil)

func NewGormBlobStore(db *gorm.DB) (*GormBlobStore, error) {
	if err := db.AutoMigrate(&model.Blob{}); err != nil {
		return nil, fmt.Errorf("migrate blobs table: %w", err)
	}
	return &GormBlobStore{db: db}, nil
}

func (s *GormBlobStore) Put(ctx context.Context, key string, data []byte) error {
	blob := model.Blob{
		Key:       key,
		Value:     data,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		return fmt.Errorf("upsert blob %s: %w", key, err)
	}
	return nil
}

func (s *GormBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var blob model.Blob
	err := s.db.WithContext(ctx).First(&blob, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrNotFound
		}
		return nil, fmt.Errorf("select blob %s: %w", key, err)
	}
	return blob.Value, nil
}
