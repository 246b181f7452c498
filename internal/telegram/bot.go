package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnsupportedKind is returned when SendMedia receives a kind outside the
// enumerated set. Stored data never triggers it; it guards programming errors.
var ErrUnsupportedKind = errors.New("unsupported media kind")

// Bot adapts the go-telegram-bot-api client to the Client port and the
// richer UI surface used by the update router (keyboards, captions,
// callbacks, command registration).
type Bot struct {
	api *tgbotapi.BotAPI
	log zerolog.Logger
}

// New authenticates against the Bot API with the given token.
func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Bot{
		api: api,
		log: log.With().Str("component", "telegram").Logger(),
	}, nil
}

// Username returns the authenticated bot's username, used to mint deep links.
func (b *Bot) Username() string { return b.api.Self.UserName }

// Updates opens the long-polling update stream.
func (b *Bot) Updates(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	return b.api.GetUpdatesChan(u)
}

// Stop terminates the long-polling loop.
func (b *Bot) Stop() { b.api.StopReceivingUpdates() }

// SendText implements Client.
func (b *Bot) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return b.send(ctx, msg)
}

// SendTextWithKeyboard sends an HTML text message with an inline keyboard.
func (b *Bot) SendTextWithKeyboard(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	return b.send(ctx, msg)
}

// SendAnimationURL sends a GIF by URL with an optional inline keyboard.
func (b *Bot) SendAnimationURL(ctx context.Context, chatID int64, url, caption string, kb *tgbotapi.InlineKeyboardMarkup) (int, error) {
	c := tgbotapi.NewAnimation(chatID, tgbotapi.FileURL(url))
	c.Caption = caption
	c.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		c.ReplyMarkup = *kb
	}
	return b.send(ctx, c)
}

// SendMedia implements Client via the kind-indexed sender table.
func (b *Bot) SendMedia(ctx context.Context, chatID int64, m Media, caption string) (int, error) {
	build, ok := senders[m.Kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, m.Kind)
	}
	return b.send(ctx, build(chatID, m.FileID, caption))
}

// CopyMessage implements Client. The Bot API's copyMessage call returns only
// the new message ID, not its payload, so the duplicate is produced with
// forwardMessage, which echoes the full message back for classification.
// The walk deletes the duplicate either way.
func (b *Bot) CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int) (*Copied, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sent, err := b.api.Send(tgbotapi.NewForward(toChat, fromChat, messageID))
	if err != nil {
		return nil, err
	}
	return &Copied{
		MessageID: sent.MessageID,
		Media:     Classify(&sent),
		Caption:   sent.Caption,
	}, nil
}

// DeleteMessage implements Client.
func (b *Bot) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// ForwardMessage implements Client.
func (b *Bot) ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Send(tgbotapi.NewForward(toChat, fromChat, messageID))
	return err
}

// MemberStatus implements Client.
func (b *Bot) MemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

// EditCaption rewrites the caption (and keyboard) of an existing message.
func (b *Bot) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	c.ParseMode = tgbotapi.ModeHTML
	c.ReplyMarkup = kb
	_, err := b.api.Request(c)
	return err
}

// AnswerCallback acknowledges a button tap, optionally as a popup alert.
func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := b.api.Request(cb)
	return err
}

// RegisterCommands publishes the command surface shown in the client UI.
func (b *Bot) RegisterCommands(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Start the bot"},
		tgbotapi.BotCommand{Command: "ingest", Description: "Ingest a numeric message range (owner)"},
		tgbotapi.BotCommand{Command: "resetrange", Description: "Reset range selection (owner)"},
		tgbotapi.BotCommand{Command: "setsource", Description: "Set source channel (owner)"},
		tgbotapi.BotCommand{Command: "forcesub", Description: "Manage required channels (owner)"},
		tgbotapi.BotCommand{Command: "settings", Description: "Bot settings (owner)"},
		tgbotapi.BotCommand{Command: "users", Description: "Show user count (owner)"},
		tgbotapi.BotCommand{Command: "broadcast", Description: "Broadcast a replied message (owner)"},
		tgbotapi.BotCommand{Command: "help", Description: "Help"},
		tgbotapi.BotCommand{Command: "about", Description: "About"},
		tgbotapi.BotCommand{Command: "legal", Description: "Legal"},
	))
	return err
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := b.api.Send(c)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

var _ Client = (*Bot)(nil)

// DeepLink builds the public retrieval link for a stored token.
func DeepLink(botUsername, token string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, token)
}
