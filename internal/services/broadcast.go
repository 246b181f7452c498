package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/observability"
)

// AudienceRepo lists the stored audience for fan-out.
type AudienceRepo interface {
	ListUserIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
}

// ForwardClient is the platform surface broadcast needs.
type ForwardClient interface {
	ForwardMessage(ctx context.Context, toChat, fromChat int64, messageID int) error
}

// Broadcaster relays one message to every stored user, sequentially and
// paced. Per-user failures (blocked bot, deleted account) are counted and
// skipped; the loop never aborts early.
type Broadcaster struct {
	DB     *gorm.DB
	Users  AudienceRepo
	Client ForwardClient

	// Delay is the mandatory pacing between forwards.
	Delay time.Duration

	log zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(db *gorm.DB, users AudienceRepo, client ForwardClient, delay time.Duration) *Broadcaster {
	return &Broadcaster{
		DB:     db,
		Users:  users,
		Client: client,
		Delay:  delay,
		log:    log.With().Str("component", "broadcast").Logger(),
	}
}

// Broadcast forwards the message identified by (fromChat, messageID) to the
// whole audience and reports success/failure counts. ErrNoAudience is
// returned when no users are stored.
func (b *Broadcaster) Broadcast(ctx context.Context, fromChat int64, messageID int) (ok, failed int, err error) {
	ids, err := b.Users.ListUserIDs(ctx, b.DB)
	if err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, ErrNoAudience
	}

	limiter := rate.NewLimiter(rate.Every(b.Delay), 1)
	for _, id := range ids {
		if werr := limiter.Wait(ctx); werr != nil {
			break
		}
		if serr := b.Client.ForwardMessage(ctx, id, fromChat, messageID); serr != nil {
			failed++
			observability.BroadcastMessages.WithLabelValues("failed").Inc()
			b.log.Debug().Int64("user_id", id).Err(serr).Msg("broadcast forward failed")
			continue
		}
		ok++
		observability.BroadcastMessages.WithLabelValues("ok").Inc()
	}
	b.log.Info().Int("ok", ok).Int("failed", failed).Msg("broadcast completed")
	return ok, failed, nil
}
