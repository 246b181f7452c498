// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file manages the singleton Settings row.
//
// The settings record is self-healing: every accessor goes through
// GetOrCreateSettings, which lazily creates the row with safe defaults
// (gate disabled, ephemeral delivery disabled, no required channels) when
// it is absent. Callers therefore never observe a missing configuration.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

// GetOrCreateSettings returns the singleton settings row, creating it with
// defaults when absent.
func GetOrCreateSettings(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	var s domain.Settings
	err := db.WithContext(ctx).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	s = domain.Settings{}
	if err := db.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SetGateEnabled flips the mandatory-follow gate and returns the new state.
func SetGateEnabled(ctx context.Context, db *gorm.DB, enabled bool) error {
	return updateSettings(ctx, db, map[string]any{"gate_enabled": enabled})
}

// SetEphemeralEnabled flips ephemeral delivery and returns the new state.
func SetEphemeralEnabled(ctx context.Context, db *gorm.DB, enabled bool) error {
	return updateSettings(ctx, db, map[string]any{"ephemeral_enabled": enabled})
}

// SetSourceChannel stores the channel the ingestion worker reads from.
// Zero means "use the deployment fallback".
func SetSourceChannel(ctx context.Context, db *gorm.DB, channelID int64) error {
	return updateSettings(ctx, db, map[string]any{"source_channel_id": channelID})
}

// AddRequiredChannel appends a channel to the gate list, normalizing it to
// the "@name" form. Duplicates are suppressed; the returned bool reports
// whether the list actually changed.
func AddRequiredChannel(ctx context.Context, db *gorm.DB, channel string) (bool, error) {
	ch := NormalizeChannel(channel)
	if ch == "@" || ch == "" {
		return false, nil
	}
	s, err := GetOrCreateSettings(ctx, db)
	if err != nil {
		return false, err
	}
	chans := s.Channels()
	for _, existing := range chans {
		if strings.EqualFold(existing, ch) {
			return false, nil
		}
	}
	s.SetChannels(append(chans, ch))
	return true, updateSettings(ctx, db, map[string]any{"required_channels": s.RequiredChannels})
}

// RemoveRequiredChannel drops a channel from the gate list. The returned
// bool reports whether the channel was present.
func RemoveRequiredChannel(ctx context.Context, db *gorm.DB, channel string) (bool, error) {
	ch := NormalizeChannel(channel)
	s, err := GetOrCreateSettings(ctx, db)
	if err != nil {
		return false, err
	}
	chans := s.Channels()
	kept := chans[:0]
	removed := false
	for _, existing := range chans {
		if strings.EqualFold(existing, ch) {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}
	s.SetChannels(kept)
	return true, updateSettings(ctx, db, map[string]any{"required_channels": s.RequiredChannels})
}

// NormalizeChannel trims whitespace and ensures the leading "@".
func NormalizeChannel(ch string) string {
	ch = strings.TrimSpace(ch)
	if ch == "" {
		return ""
	}
	if !strings.HasPrefix(ch, "@") {
		ch = "@" + ch
	}
	return ch
}

func updateSettings(ctx context.Context, db *gorm.DB, fields map[string]any) error {
	s, err := GetOrCreateSettings(ctx, db)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(s).Updates(fields).Error
}
