package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/config"
	"github.com/dkozyrev/tg-filestore/internal/domain"
	"github.com/dkozyrev/tg-filestore/internal/repo"
	"github.com/dkozyrev/tg-filestore/internal/services"
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

// Platform is the UI surface the router needs from the Telegram adapter.
type Platform interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendTextWithKeyboard(ctx context.Context, chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) (int, error)
	SendAnimationURL(ctx context.Context, chatID int64, url, caption string, kb *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
	Username() string
}

// Service contracts consumed by the router; the concrete implementations
// live in internal/services, tests use fakes.
type (
	gateService interface {
		Evaluate(ctx context.Context, userID int64) (services.Decision, error)
	}
	ingestService interface {
		HandleForward(ctx context.Context, operatorChat, fromChannel int64, forwardedID int) services.ForwardResult
		ProcessRange(ctx context.Context, sourceChat int64, a, b int, operatorChat int64) (*domain.Batch, error)
		StoreSingle(ctx context.Context, m telegram.Media, caption string) (*domain.ContentItem, error)
		SourceChannel(ctx context.Context) (int64, error)
		ResetSession()
	}
	deliveryService interface {
		Deliver(ctx context.Context, chatID int64, token string) error
	}
	broadcastService interface {
		Broadcast(ctx context.Context, fromChat int64, messageID int) (ok, failed int, err error)
	}
)

// Router turns classified updates into service calls and user-facing
// replies. It owns no state beyond its dependencies.
type Router struct {
	DB        *gorm.DB
	API       Platform
	Gate      gateService
	Ingest    ingestService
	Delivery  deliveryService
	Broadcast broadcastService
	Sched     services.Scheduler
	Cfg       config.Config

	log zerolog.Logger
}

// NewRouter wires the router.
func NewRouter(db *gorm.DB, api Platform, gate gateService, ingest ingestService, delivery deliveryService, broadcast broadcastService, sched services.Scheduler, cfg config.Config) *Router {
	return &Router{
		DB:        db,
		API:       api,
		Gate:      gate,
		Ingest:    ingest,
		Delivery:  delivery,
		Broadcast: broadcast,
		Sched:     sched,
		Cfg:       cfg,
		log:       log.With().Str("component", "router").Logger(),
	}
}

// HandleUpdate processes one inbound update. It never returns an error: every
// failure path degrades to a logged skip or a user-visible notice, so a bad
// input cannot take the process down.
func (r *Router) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	if m := u.Message; m != nil && m.From != nil {
		if err := repo.UpsertUser(ctx, r.DB, m.From.ID, m.From.FirstName, m.From.UserName); err != nil {
			r.log.Warn().Int64("user_id", m.From.ID).Err(err).Msg("user upsert failed")
		}
	}

	switch Classify(&u, r.Cfg.OwnerID) {
	case EventCommand:
		r.handleCommand(ctx, u.Message)
	case EventBoundaryForward:
		r.handleBoundary(ctx, u.Message)
	case EventOwnerMedia:
		r.handleOwnerMedia(ctx, u.Message)
	case EventUserMessage:
		r.handleUserMessage(ctx, u.Message)
	case EventCallback:
		r.handleCallback(ctx, u.CallbackQuery)
	case EventNone:
	}
}

// ---- commands ----

func (r *Router) handleCommand(ctx context.Context, m *tgbotapi.Message) {
	chatID := m.Chat.ID
	isOwner := m.From.ID == r.Cfg.OwnerID
	args := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "start":
		if args == "" {
			r.sendWelcome(ctx, m)
			return
		}
		r.retrieve(ctx, chatID, m.From.ID, args)

	case "help":
		_, _ = r.API.SendText(ctx, chatID, helpText)
	case "about":
		_, _ = r.API.SendText(ctx, chatID, aboutText)
	case "legal", "disclaimer":
		_, _ = r.API.SendText(ctx, chatID, legalText)

	case "settings":
		if !isOwner {
			return
		}
		r.sendSettings(ctx, chatID)

	case "forcesub":
		if !isOwner {
			return
		}
		r.handleForceSub(ctx, chatID, args)

	case "setsource":
		if !isOwner {
			return
		}
		id, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			_, _ = r.API.SendText(ctx, chatID, "Usage: /setsource -100123456789")
			return
		}
		if err := repo.SetSourceChannel(ctx, r.DB, id); err != nil {
			r.log.Error().Err(err).Msg("set source channel failed")
			_, _ = r.API.SendText(ctx, chatID, "⚠️ Could not save the source channel.")
			return
		}
		_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("Source channel saved: <b>%d</b>", id))

	case "ingest":
		if !isOwner {
			return
		}
		r.handleIngestCommand(ctx, chatID, args)

	case "resetrange":
		if !isOwner {
			return
		}
		r.Ingest.ResetSession()
		_, _ = r.API.SendText(ctx, chatID, "Range selection reset. Forward the start message again when ready.")

	case "users":
		if !isOwner {
			return
		}
		total, err := repo.CountUsers(ctx, r.DB)
		if err != nil {
			r.log.Error().Err(err).Msg("count users failed")
			return
		}
		_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("Total users: <b>%d</b>", total))

	case "broadcast":
		if !isOwner {
			return
		}
		if m.ReplyToMessage == nil {
			_, _ = r.API.SendText(ctx, chatID, "Reply to the message you want to broadcast.")
			return
		}
		ok, failed, err := r.Broadcast.Broadcast(ctx, chatID, m.ReplyToMessage.MessageID)
		if err != nil {
			_, _ = r.API.SendText(ctx, chatID, "⚠️ Broadcast failed: "+err.Error())
			return
		}
		_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("Broadcast completed.\nSuccess: <b>%d</b>\nFailed: <b>%d</b>", ok, failed))
	}
}

func (r *Router) handleIngestCommand(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		_, _ = r.API.SendText(ctx, chatID, "Usage: /ingest &lt;startID&gt; &lt;endID&gt;")
		return
	}
	a, errA := strconv.Atoi(fields[0])
	b, errB := strconv.Atoi(fields[1])
	if errA != nil || errB != nil || a <= 0 || b <= 0 {
		_, _ = r.API.SendText(ctx, chatID, "Usage: /ingest &lt;startID&gt; &lt;endID&gt;")
		return
	}
	source, err := r.Ingest.SourceChannel(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("resolve source channel failed")
		_, _ = r.API.SendText(ctx, chatID, "⚠️ Could not load the source channel.")
		return
	}
	_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("Processing <b>%d → %d</b> from <b>%d</b>. This may take a while...", a, b, source))

	batch, err := r.Ingest.ProcessRange(ctx, source, a, b, chatID)
	if err != nil {
		_, _ = r.API.SendText(ctx, chatID, "❌ Ingestion failed: "+err.Error())
		return
	}
	r.sendBatchLink(ctx, chatID, batch.ID, len(batch.Items))
}

func (r *Router) handleForceSub(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	usage := "Usage: /forcesub add @channel | remove @channel | list"
	if len(fields) == 0 {
		_, _ = r.API.SendText(ctx, chatID, usage)
		return
	}
	switch fields[0] {
	case "add":
		if len(fields) != 2 {
			_, _ = r.API.SendText(ctx, chatID, usage)
			return
		}
		added, err := repo.AddRequiredChannel(ctx, r.DB, fields[1])
		if err != nil {
			r.log.Error().Err(err).Msg("add required channel failed")
			return
		}
		if !added {
			_, _ = r.API.SendText(ctx, chatID, "Channel is already on the list.")
			return
		}
		_, _ = r.API.SendText(ctx, chatID, "Channel added: "+repo.NormalizeChannel(fields[1]))
	case "remove":
		if len(fields) != 2 {
			_, _ = r.API.SendText(ctx, chatID, usage)
			return
		}
		removed, err := repo.RemoveRequiredChannel(ctx, r.DB, fields[1])
		if err != nil {
			r.log.Error().Err(err).Msg("remove required channel failed")
			return
		}
		if !removed {
			_, _ = r.API.SendText(ctx, chatID, "Channel was not on the list.")
			return
		}
		_, _ = r.API.SendText(ctx, chatID, "Channel removed: "+repo.NormalizeChannel(fields[1]))
	case "list":
		r.sendChannelList(ctx, chatID)
	default:
		_, _ = r.API.SendText(ctx, chatID, usage)
	}
}

func (r *Router) sendChannelList(ctx context.Context, chatID int64) {
	s, err := repo.GetOrCreateSettings(ctx, r.DB)
	if err != nil {
		r.log.Error().Err(err).Msg("load settings failed")
		return
	}
	chans := s.Channels()
	if len(chans) == 0 {
		_, _ = r.API.SendText(ctx, chatID, "No required channels configured.")
		return
	}
	_, _ = r.API.SendText(ctx, chatID, "📌 Required channels:\n"+strings.Join(chans, "\n"))
}

// ---- ingestion events ----

func (r *Router) handleBoundary(ctx context.Context, m *tgbotapi.Message) {
	res := r.Ingest.HandleForward(ctx, m.Chat.ID, m.ForwardFromChat.ID, m.ForwardFromMessageID)
	chatID := m.Chat.ID

	switch res.Step {
	case services.StepWrongChannel:
		_, _ = r.API.SendText(ctx, chatID, "⚠️ That message is not from the configured source channel. Forward messages from the source channel only.")
	case services.StepStartRecorded:
		_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("✅ Start message detected: <b>%d</b>\nNow forward the END message of the range from the same channel.", res.Start))
	case services.StepChannelMismatch:
		_, _ = r.API.SendText(ctx, chatID, "⚠️ Start and end messages must come from the same channel. Selection reset, please start again.")
	case services.StepCompleted:
		r.sendBatchLink(ctx, chatID, res.Batch.ID, len(res.Batch.Items))
	case services.StepFailed:
		_, _ = r.API.SendText(ctx, chatID, "❌ Batch creation failed: "+res.Err.Error()+"\nCheck the channel messages and try again.")
	}
}

func (r *Router) sendBatchLink(ctx context.Context, chatID int64, batchID string, items int) {
	link := telegram.DeepLink(r.API.Username(), batchID)
	_, _ = r.API.SendText(ctx, chatID, fmt.Sprintf("🎉 Batch created!\nTotal files: <b>%d</b>\n🔗 %s", items, link))
}

func (r *Router) handleOwnerMedia(ctx context.Context, m *tgbotapi.Message) {
	media := telegram.Classify(m)
	if media == nil {
		return
	}
	item, err := r.Ingest.StoreSingle(ctx, *media, m.Caption)
	if err != nil {
		r.log.Error().Err(err).Msg("single store failed")
		_, _ = r.API.SendText(ctx, m.Chat.ID, "⚠️ Could not save the file. Try again.")
		return
	}
	_, _ = r.API.SendText(ctx, m.Chat.ID, "Saved! Link: "+telegram.DeepLink(r.API.Username(), item.ID))
}

// ---- user events ----

func (r *Router) handleUserMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.From.ID == r.Cfg.OwnerID {
		return
	}
	// Nudge unverified users toward the required channels even outside a
	// retrieval, matching the gate-on-any-message behavior.
	dec, err := r.Gate.Evaluate(ctx, m.From.ID)
	if err != nil {
		r.log.Error().Err(err).Msg("gate evaluation failed")
		return
	}
	if !dec.Allowed {
		r.sendJoinPrompt(ctx, m.Chat.ID, m.From.FirstName, "")
	}
}

// retrieve runs the gate and, when allowed, the delivery for one token.
func (r *Router) retrieve(ctx context.Context, chatID, userID int64, token string) {
	dec, err := r.Gate.Evaluate(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Msg("gate evaluation failed")
		_, _ = r.API.SendText(ctx, chatID, "⚠️ Something went wrong. Try again later.")
		return
	}
	if !dec.Allowed {
		r.sendJoinPrompt(ctx, chatID, "", token)
		return
	}

	if err := r.Delivery.Deliver(ctx, chatID, token); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownToken):
			_, _ = r.API.SendText(ctx, chatID, "❌ Invalid or expired link.")
		case errors.Is(err, services.ErrSendFailed):
			_, _ = r.API.SendText(ctx, chatID, "⚠️ Failed to send the file. Try again later.")
		default:
			r.log.Error().Err(err).Msg("delivery failed")
			_, _ = r.API.SendText(ctx, chatID, "⚠️ Something went wrong. Try again later.")
		}
	}
}

// sendJoinPrompt shows the gate keyboard: one join button per required
// channel plus a retry button carrying the original token.
func (r *Router) sendJoinPrompt(ctx context.Context, chatID int64, firstName, token string) {
	s, err := repo.GetOrCreateSettings(ctx, r.DB)
	if err != nil {
		r.log.Error().Err(err).Msg("load settings failed")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(s.Channels())+1)
	for _, ch := range s.Channels() {
		url := "https://t.me/" + strings.TrimPrefix(ch, "@")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📢 Join "+ch, url),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 I Joined, Unlock", RetryData(token)),
	))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)

	name := firstName
	if name == "" {
		name = "buddy"
	}
	caption := fmt.Sprintf("😎 <b>Hey %s!</b>\n\n🚀 <i>One small step before your files unlock...</i>\n\n💛 <b>Please join the required channels</b> to continue!", name)

	id, err := r.API.SendAnimationURL(ctx, chatID, forceSubGIF, caption, &kb)
	if err != nil {
		r.log.Warn().Err(err).Msg("join prompt animation failed")
		id, err = r.API.SendTextWithKeyboard(ctx, chatID, caption, kb)
		if err != nil {
			return
		}
	}
	r.Sched.Schedule(chatID, []int{id}, r.Cfg.JoinPromptTTL)
}

// ---- callbacks ----

func (r *Router) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	action, payload := ParseAction(q.Data)

	var chatID int64
	var messageID int
	if q.Message != nil {
		chatID = q.Message.Chat.ID
		messageID = q.Message.MessageID
	}

	switch action {
	case ActionRetry:
		r.handleRetry(ctx, q, chatID, messageID, payload)

	case ActionHelp:
		r.showMenuSection(ctx, chatID, messageID, helpText)
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)
	case ActionAbout:
		r.showMenuSection(ctx, chatID, messageID, aboutText)
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)
	case ActionOwnerInfo:
		r.showMenuSection(ctx, chatID, messageID, ownerInfoText)
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)
	case ActionLegal:
		r.showMenuSection(ctx, chatID, messageID, legalText)
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)

	case ActionToggleGate:
		r.toggleSetting(ctx, q, func(s bool) error { return repo.SetGateEnabled(ctx, r.DB, s) }, func() (bool, error) {
			s, err := repo.GetOrCreateSettings(ctx, r.DB)
			if err != nil {
				return false, err
			}
			return s.GateEnabled, nil
		}, "Force-sub")
	case ActionToggleEphemeral:
		r.toggleSetting(ctx, q, func(s bool) error { return repo.SetEphemeralEnabled(ctx, r.DB, s) }, func() (bool, error) {
			s, err := repo.GetOrCreateSettings(ctx, r.DB)
			if err != nil {
				return false, err
			}
			return s.EphemeralEnabled, nil
		}, "Auto-delete")

	case ActionListChannels:
		if q.From.ID == r.Cfg.OwnerID {
			r.sendChannelList(ctx, q.From.ID)
		}
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)

	case ActionUnknown:
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)
	}
}

func (r *Router) handleRetry(ctx context.Context, q *tgbotapi.CallbackQuery, chatID int64, messageID int, token string) {
	s, err := repo.GetOrCreateSettings(ctx, r.DB)
	if err != nil {
		_ = r.API.AnswerCallback(ctx, q.ID, "Configuration unavailable, try later.", true)
		return
	}

	// The retry path re-checks every channel; a query failure here surfaces
	// as "cannot verify" instead of silently unlocking.
	for _, ch := range s.Channels() {
		status, err := r.API.MemberStatus(ctx, ch, q.From.ID)
		if err != nil {
			_ = r.API.AnswerCallback(ctx, q.ID, "Could not verify "+ch+". Contact the owner.", true)
			return
		}
		if status == telegram.StatusLeft || status == telegram.StatusKicked {
			_ = r.API.AnswerCallback(ctx, q.ID, "❗ Join "+ch+" first.", true)
			return
		}
	}

	_ = r.API.AnswerCallback(ctx, q.ID, "✔ Verified!", false)
	if chatID != 0 && messageID != 0 {
		_ = r.API.DeleteMessage(ctx, chatID, messageID)
	}
	if id, err := r.API.SendAnimationURL(ctx, chatID, verifyGIF, "🎉 <b>Verified!</b> Unlocking your files... 🔓", nil); err == nil {
		r.Sched.Schedule(chatID, []int{id}, r.Cfg.NoticeTTL)
	}

	if token == "" {
		return
	}
	r.retrieve(ctx, chatID, q.From.ID, token)
}

func (r *Router) toggleSetting(ctx context.Context, q *tgbotapi.CallbackQuery, set func(bool) error, get func() (bool, error), label string) {
	if q.From.ID != r.Cfg.OwnerID {
		_ = r.API.AnswerCallback(ctx, q.ID, "", false)
		return
	}
	cur, err := get()
	if err != nil {
		_ = r.API.AnswerCallback(ctx, q.ID, "Update failed.", true)
		return
	}
	if err := set(!cur); err != nil {
		_ = r.API.AnswerCallback(ctx, q.ID, "Update failed.", true)
		return
	}
	state := "disabled"
	if !cur {
		state = "enabled"
	}
	_ = r.API.AnswerCallback(ctx, q.ID, label+" "+state+".", false)
}

// ---- menus ----

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", ActionHelp.Data()),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ About", ActionAbout.Data()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨‍💻 Owner", ActionOwnerInfo.Data()),
			tgbotapi.NewInlineKeyboardButtonData("📜 Legal", ActionLegal.Data()),
		),
	)
}

func (r *Router) sendWelcome(ctx context.Context, m *tgbotapi.Message) {
	kb := menuKeyboard()
	caption := fmt.Sprintf(welcomeText, m.From.FirstName)
	id, err := r.API.SendAnimationURL(ctx, m.Chat.ID, startGIF, caption, &kb)
	if err != nil {
		r.log.Warn().Err(err).Msg("welcome animation failed")
		if id, err = r.API.SendTextWithKeyboard(ctx, m.Chat.ID, caption, kb); err != nil {
			return
		}
	}
	r.Sched.Schedule(m.Chat.ID, []int{id}, r.Cfg.MenuTTL)
}

// showMenuSection rewrites the welcome caption in place, falling back to a
// fresh message when editing fails (the menu may already be deleted).
func (r *Router) showMenuSection(ctx context.Context, chatID int64, messageID int, text string) {
	kb := menuKeyboard()
	if chatID == 0 || messageID == 0 || r.API.EditCaption(ctx, chatID, messageID, text, &kb) != nil {
		_, _ = r.API.SendTextWithKeyboard(ctx, chatID, text, kb)
	}
}

func (r *Router) sendSettings(ctx context.Context, chatID int64) {
	s, err := repo.GetOrCreateSettings(ctx, r.DB)
	if err != nil {
		r.log.Error().Err(err).Msg("load settings failed")
		return
	}

	gateLabel := "Enable Force Sub"
	if s.GateEnabled {
		gateLabel = "Disable Force Sub"
	}
	ephemeralLabel := "Enable Auto Delete"
	if s.EphemeralEnabled {
		ephemeralLabel = "Disable Auto Delete"
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ephemeralLabel, ActionToggleEphemeral.Data())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(gateLabel, ActionToggleGate.Data())),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Required Channels", ActionListChannels.Data())),
	)
	_, _ = r.API.SendTextWithKeyboard(ctx, chatID, "Your bot settings", kb)
}
