// Package domain defines the persistence models for stored media items,
// batches, bot settings, and the known-user audience. These types are mapped
// with GORM and form the core data layer of the file-store bot.
package domain

import (
	"strings"
	"time"
)

// MediaKind identifies the transmission primitive used to deliver an item.
// The set is closed: every stored item carries exactly one of these values.
type MediaKind string

// Supported media kinds, in extraction-policy order.
const (
	KindDocument  MediaKind = "document"
	KindPhoto     MediaKind = "photo"
	KindVideo     MediaKind = "video"
	KindAudio     MediaKind = "audio"
	KindAnimation MediaKind = "animation"
	KindVoice     MediaKind = "voice"
)

// Kinds lists every supported media kind in policy order.
var Kinds = []MediaKind{KindDocument, KindPhoto, KindVideo, KindAudio, KindAnimation, KindVoice}

// Valid reports whether k is one of the supported media kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case KindDocument, KindPhoto, KindVideo, KindAudio, KindAnimation, KindVoice:
		return true
	}
	return false
}

// ContentItem is a single stored media reference. Its ID is the public
// retrieval key handed out in share links. Items are immutable once created.
//
// Fields:
//   - ID: UUID primary key, also the deep-link token.
//   - FileID: opaque media reference issued by Telegram; not validated here.
//   - Kind: one of the MediaKind constants (enforced by DB constraint).
//   - FileName / Caption: free text, may be empty.
//   - OwnerID: Telegram user ID of the creator (the operator).
type ContentItem struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	FileID    string    `json:"file_id"    gorm:"type:text;not null"`
	Kind      MediaKind `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('document','photo','video','audio','animation','voice')"`
	FileName  string    `json:"file_name"  gorm:"type:text;not null;default:''"`
	Caption   string    `json:"caption"    gorm:"type:text;not null;default:''"`
	OwnerID   int64     `json:"owner_id"   gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ContentItem.
func (ContentItem) TableName() string { return "content_items" }

// Batch is an ordered set of stored items shared under a single token.
// A batch is never persisted with zero items; creation is transactional.
type Batch struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	OwnerID   int64     `json:"owner_id"   gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`

	// Items are denormalized copies of the extracted content, ordered by
	// Position. This order is the user-visible delivery order.
	Items []BatchItem `json:"items" gorm:"foreignKey:BatchID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Batch.
func (Batch) TableName() string { return "batches" }

// BatchItem is one embedded entry of a batch: a denormalized snapshot of the
// ContentItem that was minted during ingestion, not a foreign key to it.
// Position records insertion order and drives delivery order.
type BatchItem struct {
	ID       uint      `json:"-"         gorm:"primaryKey;autoIncrement"`
	BatchID  string    `json:"-"         gorm:"type:char(36);not null;index:idx_batch_pos,priority:1"`
	Position int       `json:"position"  gorm:"not null;index:idx_batch_pos,priority:2"`
	ItemID   string    `json:"item_id"   gorm:"type:char(36);not null"`
	FileID   string    `json:"file_id"   gorm:"type:text;not null"`
	Kind     MediaKind `json:"kind"      gorm:"type:varchar(16);not null"`
	FileName string    `json:"file_name" gorm:"type:text;not null;default:''"`
	Caption  string    `json:"caption"   gorm:"type:text;not null;default:''"`
	OwnerID  int64     `json:"owner_id"  gorm:"not null"`
}

// TableName returns the database table name for BatchItem.
func (BatchItem) TableName() string { return "batch_items" }

// Settings is the singleton operator configuration row. It is created lazily
// with safe defaults on first access and mutated only by operator commands.
type Settings struct {
	ID               uint      `json:"-"                  gorm:"primaryKey"`
	GateEnabled      bool      `json:"gate_enabled"       gorm:"not null;default:false"`
	EphemeralEnabled bool      `json:"ephemeral_enabled"  gorm:"not null;default:false"`
	RequiredChannels string    `json:"required_channels"  gorm:"type:text;not null;default:''"`
	SourceChannelID  int64     `json:"source_channel_id"  gorm:"not null;default:0"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Settings.
func (Settings) TableName() string { return "settings" }

// Channels splits RequiredChannels into the ordered channel list.
// The stored string is comma-joined with duplicates already suppressed.
func (s *Settings) Channels() []string {
	if strings.TrimSpace(s.RequiredChannels) == "" {
		return nil
	}
	parts := strings.Split(s.RequiredChannels, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SetChannels joins chans back into the stored representation.
func (s *Settings) SetChannels(chans []string) {
	s.RequiredChannels = strings.Join(chans, ",")
}

// User is one member of the bot's audience, upserted on every inbound
// message. Used for the /users count and broadcast fan-out.
type User struct {
	TelegramID      int64     `json:"telegram_id" gorm:"primaryKey;autoIncrement:false"`
	FirstName       string    `json:"first_name"  gorm:"type:text;not null;default:''"`
	Username        string    `json:"username"    gorm:"type:text;not null;default:''"`
	Status          string    `json:"status"      gorm:"type:varchar(16);not null;default:'active'"`
	LastInteraction time.Time `json:"last_interaction"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
