// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for stored content
// items and batches.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrEmptyBatch is returned when CreateBatch is called with zero items.
// A batch is never persisted without at least one item.
var ErrEmptyBatch = errors.New("batch must contain at least one item")

// CreateContentItem inserts a new immutable content item owned by ownerID.
// The item ID is a randomly generated UUID that doubles as the public
// retrieval token. CreatedAt is set to UTC.
func CreateContentItem(ctx context.Context, db *gorm.DB, fileID string, kind domain.MediaKind, fileName, caption string, ownerID int64) (*domain.ContentItem, error) {
	it := &domain.ContentItem{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Kind:      kind,
		FileName:  fileName,
		Caption:   caption,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(it).Error; err != nil {
		return nil, err
	}
	return it, nil
}

// GetContentItem fetches a single item by its public ID. If the record does
// not exist, it returns ErrNotFound.
func GetContentItem(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error) {
	var it domain.ContentItem
	if err := db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// CreateBatch atomically persists a batch with the given denormalized items.
// Item positions are assigned from slice order, which is therefore the
// retrieval/delivery order. An empty items slice returns ErrEmptyBatch and
// writes nothing.
func CreateBatch(ctx context.Context, db *gorm.DB, ownerID int64, items []domain.BatchItem) (*domain.Batch, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	b := &domain.Batch{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(b).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].BatchID = b.ID
			items[i].Position = i
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return nil, err
	}
	b.Items = items
	return b, nil
}

// GetBatch fetches a batch by its public ID with items ordered by position.
// If the record does not exist, it returns ErrNotFound.
func GetBatch(ctx context.Context, db *gorm.DB, id string) (*domain.Batch, error) {
	var b domain.Batch
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position asc") }).
		First(&b, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}
