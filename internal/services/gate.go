// Package services – access gate
//
// The gate decides whether a requester may receive content based on the
// configured mandatory-follow channels. Checks run in configured order and
// short-circuit on the first unsatisfied channel, so the requester is always
// pointed at the earliest channel they still need to join. A failing
// membership query is NOT a denial: the check is skipped and evaluation
// proceeds (fail-open per channel), so one misconfigured channel cannot lock
// out the whole audience.
package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/domain"
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

// SettingsRepo is the configuration access contract shared by the services.
// The backing row is lazily created with safe defaults when absent.
type SettingsRepo interface {
	GetOrCreateSettings(ctx context.Context, db *gorm.DB) (*domain.Settings, error)
}

// MembershipClient is the single platform capability the gate needs.
type MembershipClient interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// Decision is the gate's verdict. When Allowed is false, Channel names the
// first unsatisfied channel, which drives the join prompt shown to the user.
type Decision struct {
	Allowed bool
	Channel string
}

// Gate evaluates the membership requirement for requesters.
type Gate struct {
	DB       *gorm.DB
	Settings SettingsRepo
	Client   MembershipClient
	OwnerID  int64

	log zerolog.Logger
}

// NewGate constructs a Gate.
func NewGate(db *gorm.DB, settings SettingsRepo, client MembershipClient, ownerID int64) *Gate {
	return &Gate{
		DB:       db,
		Settings: settings,
		Client:   client,
		OwnerID:  ownerID,
		log:      log.With().Str("component", "gate").Logger(),
	}
}

// Evaluate returns Allowed for the operator, for a disabled gate, and for an
// empty channel list — all without issuing membership queries. Otherwise it
// walks the required channels in order and denies on the first one whose
// status is "left" or "kicked".
func (g *Gate) Evaluate(ctx context.Context, userID int64) (Decision, error) {
	if userID == g.OwnerID {
		return Decision{Allowed: true}, nil
	}

	s, err := g.Settings.GetOrCreateSettings(ctx, g.DB)
	if err != nil {
		return Decision{}, err
	}
	if !s.GateEnabled {
		return Decision{Allowed: true}, nil
	}
	channels := s.Channels()
	if len(channels) == 0 {
		return Decision{Allowed: true}, nil
	}

	for _, ch := range channels {
		status, err := g.Client.MemberStatus(ctx, ch, userID)
		if err != nil {
			// Channel invalid or bot lacks permission to query it; skip
			// rather than deny so one bad channel cannot block everyone.
			g.log.Warn().Str("channel", ch).Int64("user_id", userID).Err(err).Msg("membership query failed, skipping channel")
			continue
		}
		if status == telegram.StatusLeft || status == telegram.StatusKicked {
			return Decision{Allowed: false, Channel: ch}, nil
		}
	}
	return Decision{Allowed: true}, nil
}
