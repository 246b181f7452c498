// Package services – delivery scheduler
//
// This file renders stored content to a requester who already passed the
// access gate, and manages the ephemeral lifetime of what was sent. Tokens
// resolve item-first, then batch; anything else is ErrUnknownToken. Batch
// items go out strictly in stored order with fixed pacing between sends.
// When ephemeral mode is on, everything transmitted is handed to the cleanup
// scheduler before Deliver returns; deletion completion is never awaited.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dkozyrev/tg-filestore/internal/domain"
	"github.com/dkozyrev/tg-filestore/internal/observability"
	"github.com/dkozyrev/tg-filestore/internal/repo"
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

// ContentReader defines the lookup contract required by delivery.
type ContentReader interface {
	GetContentItem(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error)
	GetBatch(ctx context.Context, db *gorm.DB, id string) (*domain.Batch, error)
}

// SendClient is the platform surface delivery needs.
type SendClient interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendMedia(ctx context.Context, chatID int64, m telegram.Media, caption string) (int, error)
}

// Delivery resolves retrieval tokens and transmits their content.
type Delivery struct {
	DB       *gorm.DB
	Repo     ContentReader
	Settings SettingsRepo
	Client   SendClient
	Sched    Scheduler

	// ItemDelay is the mandatory pacing between batch items.
	ItemDelay time.Duration
	// EphemeralTTL is how long delivered content lives in ephemeral mode.
	EphemeralTTL time.Duration
	// NoticeTTL is how long short status notices live.
	NoticeTTL time.Duration

	log zerolog.Logger
}

// NewDelivery constructs a Delivery.
func NewDelivery(db *gorm.DB, reader ContentReader, settings SettingsRepo, client SendClient, sched Scheduler, itemDelay, ephemeralTTL, noticeTTL time.Duration) *Delivery {
	return &Delivery{
		DB:           db,
		Repo:         reader,
		Settings:     settings,
		Client:       client,
		Sched:        sched,
		ItemDelay:    itemDelay,
		EphemeralTTL: ephemeralTTL,
		NoticeTTL:    noticeTTL,
		log:          log.With().Str("component", "delivery").Logger(),
	}
}

// Deliver resolves token and transmits the matching item or batch to chatID.
// It returns ErrUnknownToken when the token resolves to nothing and
// ErrSendFailed when a transmission error aborted the delivery; the router
// maps both to user-visible notices.
func (d *Delivery) Deliver(ctx context.Context, chatID int64, token string) error {
	tr := otel.Tracer("services/Delivery")
	ctx, span := tr.Start(ctx, "Deliver",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	s, err := d.Settings.GetOrCreateSettings(ctx, d.DB)
	if err != nil {
		return err
	}

	// Items first, then batches; the two keyspaces are disjoint UUIDs.
	if item, err := d.Repo.GetContentItem(ctx, d.DB, token); err == nil {
		return d.deliverItem(ctx, chatID, s, item)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	batch, err := d.Repo.GetBatch(ctx, d.DB, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			observability.Deliveries.WithLabelValues("not_found").Inc()
			return ErrUnknownToken
		}
		return err
	}
	return d.deliverBatch(ctx, chatID, s, batch)
}

func (d *Delivery) deliverItem(ctx context.Context, chatID int64, s *domain.Settings, item *domain.ContentItem) error {
	id, err := d.Client.SendMedia(ctx, chatID, telegram.Media{
		Kind:     item.Kind,
		FileID:   item.FileID,
		FileName: item.FileName,
	}, captionOr(item.Caption, item.FileName))
	if err != nil {
		observability.Deliveries.WithLabelValues("send_failed").Inc()
		d.log.Warn().Str("item_id", item.ID).Err(err).Msg("item send failed")
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	observability.MessagesDelivered.Inc()
	observability.Deliveries.WithLabelValues("ok").Inc()

	d.scheduleEphemeral(ctx, chatID, s, []int{id})
	return nil
}

func (d *Delivery) deliverBatch(ctx context.Context, chatID int64, s *domain.Settings, batch *domain.Batch) error {
	limiter := rate.NewLimiter(rate.Every(d.ItemDelay), 1)

	sent := make([]int, 0, len(batch.Items))
	for _, it := range batch.Items {
		// A canceled context aborts the walk before it can count as a
		// completed delivery.
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		id, err := d.Client.SendMedia(ctx, chatID, telegram.Media{
			Kind:     it.Kind,
			FileID:   it.FileID,
			FileName: it.FileName,
		}, captionOr(it.Caption, it.FileName))
		if err != nil {
			// Abort the remainder; what went out stays delivered.
			observability.Deliveries.WithLabelValues("send_failed").Inc()
			d.log.Warn().Str("batch_id", batch.ID).Int("position", it.Position).Err(err).Msg("batch send failed")
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		sent = append(sent, id)
		observability.MessagesDelivered.Inc()
	}
	observability.Deliveries.WithLabelValues("ok").Inc()

	if done, err := d.Client.SendText(ctx, chatID, "📦 All batch files delivered!"); err == nil {
		d.Sched.Schedule(chatID, []int{done}, d.NoticeTTL)
	}

	d.scheduleEphemeral(ctx, chatID, s, sent)
	return nil
}

// scheduleEphemeral warns the requester and queues deletion of everything
// transmitted. Best effort only: the warning may fail to send, and the
// scheduled deletions do not survive a restart.
func (d *Delivery) scheduleEphemeral(ctx context.Context, chatID int64, s *domain.Settings, sent []int) {
	if !s.EphemeralEnabled || len(sent) == 0 {
		return
	}
	warnText := fmt.Sprintf("⏳ <b>This content will be deleted in %s. Save it now!</b>", formatTTL(d.EphemeralTTL))
	if warn, err := d.Client.SendText(ctx, chatID, warnText); err == nil {
		d.Sched.Schedule(chatID, []int{warn}, d.NoticeTTL)
	}
	d.Sched.Schedule(chatID, sent, d.EphemeralTTL)
}

// captionOr falls back to the display name when the caption is empty.
func captionOr(caption, fileName string) string {
	if caption != "" {
		return caption
	}
	return fileName
}

// formatTTL renders a duration without trailing zero units (10m, not 10m0s).
func formatTTL(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
