// Package services – range ingestion worker
//
// This file implements the owner-only two-phase boundary selection protocol
// and the sequential range walk that materializes a Batch from a contiguous
// run of source-channel messages.
//
// Failure policy: per-position errors (missing message, copy failure,
// unsupported payload, even a DB write error) are soft — they are logged,
// counted, and skipped. Only an empty final result is reported as a failure,
// and in that case nothing is persisted. The walk is not transactional
// across positions: a crash mid-walk may leave already-persisted items
// unreferenced by any batch, which is accepted.
//
// Observability: the range walk is OpenTelemetry-instrumented; spans carry
// the normalized bounds and the extracted item count.
package services

import (
	"context"
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
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

// ContentRepo defines the persistence contract required by the ingestion
// worker.
type ContentRepo interface {
	// CreateContentItem persists one extracted media reference.
	CreateContentItem(ctx context.Context, db *gorm.DB, fileID string, kind domain.MediaKind, fileName, caption string, ownerID int64) (*domain.ContentItem, error)

	// CreateBatch atomically persists a batch with its ordered items.
	CreateBatch(ctx context.Context, db *gorm.DB, ownerID int64, items []domain.BatchItem) (*domain.Batch, error)
}

// CopyClient is the platform surface the range walk needs.
type CopyClient interface {
	CopyMessage(ctx context.Context, toChat, fromChat int64, messageID int) (*telegram.Copied, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// ForwardStep is the closed set of outcomes of feeding one forwarded
// boundary message into the selection protocol. The router matches it
// exhaustively to render operator feedback.
type ForwardStep int

const (
	// StepWrongChannel: the forward did not originate from the configured
	// source channel; the session is unchanged.
	StepWrongChannel ForwardStep = iota

	// StepStartRecorded: the start boundary was accepted; the operator is
	// prompted for the end boundary.
	StepStartRecorded

	// StepChannelMismatch: the end boundary came from a different channel
	// than the start; the session was fully reset.
	StepChannelMismatch

	// StepCompleted: the range walk ran and persisted a batch.
	StepCompleted

	// StepFailed: the range walk ran but produced nothing; the session was
	// reset and no batch was persisted.
	StepFailed
)

// ForwardResult carries the step plus the data the router needs to render it.
type ForwardResult struct {
	Step  ForwardStep
	Start int
	End   int
	Batch *domain.Batch
	Err   error
}

// Ingestor drives boundary selection and the range walk.
type Ingestor struct {
	DB       *gorm.DB
	Repo     ContentRepo
	Settings SettingsRepo
	Client   CopyClient
	Sessions SessionStore

	OwnerID int64
	// FallbackSource is the deployment-constant source channel used when
	// settings hold none.
	FallbackSource int64
	// CopyDelay is the mandatory pacing between range positions.
	CopyDelay time.Duration

	log zerolog.Logger
}

// NewIngestor constructs an Ingestor.
func NewIngestor(db *gorm.DB, repo ContentRepo, settings SettingsRepo, client CopyClient, sessions SessionStore, ownerID, fallbackSource int64, copyDelay time.Duration) *Ingestor {
	return &Ingestor{
		DB:             db,
		Repo:           repo,
		Settings:       settings,
		Client:         client,
		Sessions:       sessions,
		OwnerID:        ownerID,
		FallbackSource: fallbackSource,
		CopyDelay:      copyDelay,
		log:            log.With().Str("component", "ingest").Logger(),
	}
}

// ResetSession force-transitions the operator's selection back to empty.
func (in *Ingestor) ResetSession() {
	in.Sessions.Reset(in.OwnerID)
}

// SourceChannel resolves the configured source channel, preferring the
// settings value over the deployment fallback.
func (in *Ingestor) SourceChannel(ctx context.Context) (int64, error) {
	s, err := in.Settings.GetOrCreateSettings(ctx, in.DB)
	if err != nil {
		return 0, err
	}
	if s.SourceChannelID != 0 {
		return s.SourceChannelID, nil
	}
	return in.FallbackSource, nil
}

// HandleForward feeds one forwarded-from-channel message into the selection
// state machine. operatorChat is where temporary duplicates land during the
// walk (the operator's own chat).
func (in *Ingestor) HandleForward(ctx context.Context, operatorChat, fromChannel int64, forwardedID int) ForwardResult {
	source, err := in.SourceChannel(ctx)
	if err != nil {
		return ForwardResult{Step: StepFailed, Err: err}
	}
	if fromChannel != source {
		return ForwardResult{Step: StepWrongChannel}
	}

	s := in.Sessions.Get(in.OwnerID)
	if !s.Started() {
		s.BoundaryStart = forwardedID
		s.SourceChannel = fromChannel
		in.Sessions.Put(in.OwnerID, s)
		return ForwardResult{Step: StepStartRecorded, Start: forwardedID}
	}

	if fromChannel != s.SourceChannel {
		// Boundaries must come from one channel; drop the start too.
		in.Sessions.Reset(in.OwnerID)
		return ForwardResult{Step: StepChannelMismatch}
	}

	s.BoundaryEnd = forwardedID
	start, end := s.BoundaryStart, s.BoundaryEnd

	// Processing is terminal: whatever happens next, the session is spent.
	in.Sessions.Reset(in.OwnerID)

	batch, err := in.ProcessRange(ctx, s.SourceChannel, start, end, operatorChat)
	if err != nil {
		return ForwardResult{Step: StepFailed, Start: start, End: end, Err: err}
	}
	return ForwardResult{Step: StepCompleted, Start: start, End: end, Batch: batch}
}

// ProcessRange walks every position between the normalized bounds in
// ascending order, duplicates each message into operatorChat, extracts
// supported media, and persists one batch with the collected items in
// position order. It returns ErrNoMediaInRange when the walk extracted
// nothing.
func (in *Ingestor) ProcessRange(ctx context.Context, sourceChat int64, a, b int, operatorChat int64) (*domain.Batch, error) {
	tr := otel.Tracer("services/Ingestor")
	from, to := a, b
	if from > to {
		from, to = to, from
	}
	ctx, span := tr.Start(ctx, "ProcessRange",
		trace.WithAttributes(
			attribute.Int("range.from", from),
			attribute.Int("range.to", to),
			attribute.Int64("range.source", sourceChat),
		),
	)
	defer span.End()

	// The remote API throttles bursts; every iteration waits its turn.
	limiter := rate.NewLimiter(rate.Every(in.CopyDelay), 1)

	var items []domain.BatchItem
	for pos := from; pos <= to; pos++ {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		copied, err := in.Client.CopyMessage(ctx, operatorChat, sourceChat, pos)
		if err != nil {
			// Deleted, inaccessible, or transient failure; the range
			// tolerates gaps.
			in.log.Debug().Int("position", pos).Err(err).Msg("copy failed, skipping position")
			observability.PositionsSkipped.Inc()
			continue
		}

		if copied.Media == nil {
			// Text-only or unsupported payload.
			_ = in.Client.DeleteMessage(ctx, operatorChat, copied.MessageID)
			observability.PositionsSkipped.Inc()
			continue
		}

		item, err := in.Repo.CreateContentItem(ctx, in.DB, copied.Media.FileID, copied.Media.Kind, copied.Media.FileName, copied.Caption, in.OwnerID)
		if err != nil {
			in.log.Error().Int("position", pos).Err(err).Msg("persist failed, skipping position")
			_ = in.Client.DeleteMessage(ctx, operatorChat, copied.MessageID)
			observability.PositionsSkipped.Inc()
			continue
		}
		observability.ItemsIngested.WithLabelValues(string(item.Kind)).Inc()

		items = append(items, domain.BatchItem{
			ItemID:   item.ID,
			FileID:   item.FileID,
			Kind:     item.Kind,
			FileName: item.FileName,
			Caption:  item.Caption,
			OwnerID:  item.OwnerID,
		})

		// Keep the operator chat clean; a stuck duplicate is harmless.
		_ = in.Client.DeleteMessage(ctx, operatorChat, copied.MessageID)
	}

	if len(items) == 0 {
		return nil, ErrNoMediaInRange
	}

	batch, err := in.Repo.CreateBatch(ctx, in.DB, in.OwnerID, items)
	if err != nil {
		return nil, err
	}
	observability.BatchesCreated.Inc()
	span.SetAttributes(attribute.Int("batch.items", len(batch.Items)))
	in.log.Info().Str("batch_id", batch.ID).Int("items", len(batch.Items)).Int("from", from).Int("to", to).Msg("batch created")
	return batch, nil
}

// StoreSingle persists one media message the operator sent directly to the
// bot and returns the stored item.
func (in *Ingestor) StoreSingle(ctx context.Context, m telegram.Media, caption string) (*domain.ContentItem, error) {
	item, err := in.Repo.CreateContentItem(ctx, in.DB, m.FileID, m.Kind, m.FileName, caption, in.OwnerID)
	if err != nil {
		return nil, err
	}
	observability.ItemsIngested.WithLabelValues(string(item.Kind)).Inc()
	return item, nil
}
