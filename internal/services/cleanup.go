package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkozyrev/tg-filestore/internal/observability"
)

// Deleter is the single platform capability the cleanup scheduler needs.
// telegram.Client satisfies it.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Scheduler queues best-effort message deletions to run after a delay.
// Scheduling is fire-and-forget: it never blocks the caller, survives no
// process restart, and treats deletion failures as ignorable.
type Scheduler interface {
	Schedule(chatID int64, messageIDs []int, after time.Duration)
}

// TimerScheduler implements Scheduler with one background timer per call.
// There is no cancellation handle; scheduled work runs to completion or dies
// with the process.
type TimerScheduler struct {
	Client Deleter

	log zerolog.Logger
}

// NewTimerScheduler builds a TimerScheduler around the given deleter.
func NewTimerScheduler(client Deleter) *TimerScheduler {
	return &TimerScheduler{
		Client: client,
		log:    log.With().Str("component", "cleanup").Logger(),
	}
}

// Schedule implements Scheduler.
func (s *TimerScheduler) Schedule(chatID int64, messageIDs []int, after time.Duration) {
	if len(messageIDs) == 0 {
		return
	}
	ids := make([]int, len(messageIDs))
	copy(ids, messageIDs)
	observability.DeletionsScheduled.Add(float64(len(ids)))

	time.AfterFunc(after, func() {
		for _, id := range ids {
			if err := s.Client.DeleteMessage(context.Background(), chatID, id); err != nil {
				// Already deleted or no permission; both are fine.
				observability.DeletionsExecuted.WithLabelValues("failed").Inc()
				s.log.Debug().Int64("chat_id", chatID).Int("message_id", id).Err(err).Msg("scheduled delete failed")
				continue
			}
			observability.DeletionsExecuted.WithLabelValues("ok").Inc()
		}
	})
}
