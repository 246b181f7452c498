// Package telegram wraps the Bot API behind a narrow client port consumed by
// the service layer, plus payload classification helpers. Services depend on
// the Client interface only; the concrete adapter lives in bot.go.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkozyrev/tg-filestore/internal/domain"
)

// Membership statuses that the access gate treats as "not a member".
const (
	StatusLeft   = "left"
	StatusKicked = "kicked"
)

// Media is a classified media payload: the kind plus the opaque file
// reference Telegram issued for it.
type Media struct {
	Kind     domain.MediaKind
	FileID   string
	FileName string
}

// Copied is the result of duplicating a source-channel message into a chat.
// Media is nil when the duplicated message carried no supported payload
// (plain text, stickers, and so on).
type Copied struct {
	MessageID int
	Media     *Media
	Caption   string
}

// Client is the platform surface the services need: send-by-kind, duplicate,
// delete, forward, and membership queries. The adapter in this package
// implements it against the Bot API; tests substitute fakes.
type Client interface {
	// SendText sends an HTML-formatted text message and returns its message ID.
	SendText(ctx context.Context, chatID int64, text string) (int, error)

	// SendMedia transmits a stored media reference using the primitive
	// matching its kind and returns the sent message ID.
	SendMedia(ctx context.Context, chatID int64, m Media, caption string) (int, error)

	// CopyMessage duplicates one source-channel message into toChat and
	// reports its classified payload.
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int) (*Copied, error)

	// DeleteMessage removes a message. Callers treat failures as ignorable.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error

	// ForwardMessage relays an existing message to another chat.
	ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) error

	// MemberStatus reports the requester's membership status in a channel
	// ("member", "left", "kicked", ...).
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// Classify extracts the media payload of a message against the ordered
// policy: document, photo (largest variant), video, audio, animation, voice.
// It returns nil for text-only or unsupported messages.
func Classify(m *tgbotapi.Message) *Media {
	switch {
	case m.Document != nil:
		return &Media{Kind: domain.KindDocument, FileID: m.Document.FileID, FileName: m.Document.FileName}
	case len(m.Photo) > 0:
		return &Media{Kind: domain.KindPhoto, FileID: largestPhoto(m.Photo).FileID}
	case m.Video != nil:
		return &Media{Kind: domain.KindVideo, FileID: m.Video.FileID, FileName: m.Video.FileName}
	case m.Audio != nil:
		return &Media{Kind: domain.KindAudio, FileID: m.Audio.FileID, FileName: m.Audio.FileName}
	case m.Animation != nil:
		return &Media{Kind: domain.KindAnimation, FileID: m.Animation.FileID, FileName: m.Animation.FileName}
	case m.Voice != nil:
		return &Media{Kind: domain.KindVoice, FileID: m.Voice.FileID}
	}
	return nil
}

// largestPhoto picks the variant with the biggest pixel area.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

// senders maps every media kind to its transmission primitive. The map is
// closed over the enumerated kind set; delivery fails fast on anything else.
var senders = map[domain.MediaKind]func(chatID int64, fileID, caption string) tgbotapi.Chattable{
	domain.KindDocument: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
	domain.KindPhoto: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
	domain.KindVideo: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
	domain.KindAudio: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewAudio(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
	domain.KindAnimation: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
	domain.KindVoice: func(chatID int64, fileID, caption string) tgbotapi.Chattable {
		c := tgbotapi.NewVoice(chatID, tgbotapi.FileID(fileID))
		c.Caption = caption
		c.ParseMode = tgbotapi.ModeHTML
		return c
	},
}
