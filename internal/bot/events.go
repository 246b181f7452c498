// Package bot classifies inbound Telegram updates into a closed set of event
// kinds and dispatches them to the ingestion, gate, and delivery services.
// Callback payloads are likewise parsed into a closed action set so that
// dispatch is an exhaustive switch rather than string matching spread around.
package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventKind is the closed set of inbound event shapes the router handles.
type EventKind int

const (
	// EventNone: updates without a usable message or callback.
	EventNone EventKind = iota

	// EventCommand: a slash command from any user.
	EventCommand

	// EventBoundaryForward: the operator forwarded a channel message, which
	// the ingestion worker treats as a boundary candidate.
	EventBoundaryForward

	// EventOwnerMedia: the operator sent a media message directly to the
	// bot (single-file store).
	EventOwnerMedia

	// EventUserMessage: any other plain message.
	EventUserMessage

	// EventCallback: an inline-keyboard button tap.
	EventCallback
)

// Classify maps an update to its event kind.
func Classify(u *tgbotapi.Update, ownerID int64) EventKind {
	if u.CallbackQuery != nil {
		return EventCallback
	}
	m := u.Message
	if m == nil || m.From == nil {
		return EventNone
	}
	if m.IsCommand() {
		return EventCommand
	}
	if m.From.ID == ownerID {
		if m.ForwardFromChat != nil && m.ForwardFromChat.IsChannel() && m.ForwardFromMessageID != 0 {
			return EventBoundaryForward
		}
		if hasMedia(m) {
			return EventOwnerMedia
		}
	}
	return EventUserMessage
}

func hasMedia(m *tgbotapi.Message) bool {
	return m.Document != nil || len(m.Photo) > 0 || m.Video != nil ||
		m.Audio != nil || m.Animation != nil || m.Voice != nil
}

// Action is the closed set of inline-button actions.
type Action int

const (
	ActionUnknown Action = iota
	ActionRetry
	ActionHelp
	ActionAbout
	ActionOwnerInfo
	ActionLegal
	ActionToggleGate
	ActionToggleEphemeral
	ActionListChannels
)

const retryPrefix = "retry:"

// RetryData encodes a retry button payload carrying the original token.
func RetryData(token string) string { return retryPrefix + token }

// ParseAction decodes callback data into an action and, for retries, the
// original retrieval token.
func ParseAction(data string) (Action, string) {
	if strings.HasPrefix(data, retryPrefix) {
		return ActionRetry, strings.TrimPrefix(data, retryPrefix)
	}
	switch data {
	case "help":
		return ActionHelp, ""
	case "about":
		return ActionAbout, ""
	case "owner":
		return ActionOwnerInfo, ""
	case "legal":
		return ActionLegal, ""
	case "toggle_gate":
		return ActionToggleGate, ""
	case "toggle_ephemeral":
		return ActionToggleEphemeral, ""
	case "channels":
		return ActionListChannels, ""
	}
	return ActionUnknown, ""
}

// Data returns the callback payload for a parameterless action.
func (a Action) Data() string {
	switch a {
	case ActionHelp:
		return "help"
	case ActionAbout:
		return "about"
	case ActionOwnerInfo:
		return "owner"
	case ActionLegal:
		return "legal"
	case ActionToggleGate:
		return "toggle_gate"
	case ActionToggleEphemeral:
		return "toggle_ephemeral"
	case ActionListChannels:
		return "channels"
	}
	return ""
}
