// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file tracks the bot's audience for /users and
// broadcast fan-out.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

// UpsertUser records an interaction from the given Telegram user, inserting
// the row on first contact and refreshing name, username, status, and the
// last-interaction timestamp afterwards.
func UpsertUser(ctx context.Context, db *gorm.DB, telegramID int64, firstName, username string) error {
	u := &domain.User{
		TelegramID:      telegramID,
		FirstName:       firstName,
		Username:        username,
		Status:          "active",
		LastInteraction: time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "username", "status", "last_interaction"}),
	}).Create(u).Error
}

// CountUsers returns the size of the stored audience.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error
	return total, err
}

// ListUserIDs returns every stored Telegram user ID in insertion order.
func ListUserIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Order("telegram_id asc").
		Pluck("telegram_id", &ids).Error
	return ids, err
}
