// Command filestore runs the Telegram file-store bot: a long-polling update
// loop for the bot itself plus a small HTTP server for health and metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/dkozyrev/tg-filestore/internal/bot"
	"github.com/dkozyrev/tg-filestore/internal/config"
	"github.com/dkozyrev/tg-filestore/internal/domain"
	httpapi "github.com/dkozyrev/tg-filestore/internal/http"
	"github.com/dkozyrev/tg-filestore/internal/observability"
	"github.com/dkozyrev/tg-filestore/internal/repo"
	"github.com/dkozyrev/tg-filestore/internal/services"
	"github.com/dkozyrev/tg-filestore/internal/telegram"
)

const version = "1.0.0"

// Shims adapting the repository free functions to the interfaces the
// services expect. This keeps services decoupled from the concrete repo
// package while reusing existing functions.
type settingsRepoShim struct{}

func (settingsRepoShim) GetOrCreateSettings(ctx context.Context, db *gorm.DB) (*domain.Settings, error) {
	return repo.GetOrCreateSettings(ctx, db)
}

type contentRepoShim struct{}

func (contentRepoShim) CreateContentItem(ctx context.Context, db *gorm.DB, fileID string, kind domain.MediaKind, fileName, caption string, ownerID int64) (*domain.ContentItem, error) {
	return repo.CreateContentItem(ctx, db, fileID, kind, fileName, caption, ownerID)
}

func (contentRepoShim) CreateBatch(ctx context.Context, db *gorm.DB, ownerID int64, items []domain.BatchItem) (*domain.Batch, error) {
	return repo.CreateBatch(ctx, db, ownerID, items)
}

func (contentRepoShim) GetContentItem(ctx context.Context, db *gorm.DB, id string) (*domain.ContentItem, error) {
	return repo.GetContentItem(ctx, db, id)
}

func (contentRepoShim) GetBatch(ctx context.Context, db *gorm.DB, id string) (*domain.Batch, error) {
	return repo.GetBatch(ctx, db, id)
}

type userRepoShim struct{}

func (userRepoShim) ListUserIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	return repo.ListUserIDs(ctx, db)
}

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	setupLogger(cfg)
	log.Info().Str("version", version).Msg("starting filestore bot")

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}

	api, err := telegram.New(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to telegram")
	}
	log.Info().Str("bot", api.Username()).Msg("authorized")

	if err := api.RegisterCommands(ctx); err != nil {
		log.Warn().Err(err).Msg("register bot commands")
	}

	settings := settingsRepoShim{}
	content := contentRepoShim{}
	sched := services.NewTimerScheduler(api)
	gate := services.NewGate(db, settings, api, cfg.OwnerID)
	ingest := services.NewIngestor(db, content, settings, api, services.NewMemorySessionStore(), cfg.OwnerID, cfg.SourceChannelID, cfg.CopyDelay)
	delivery := services.NewDelivery(db, content, settings, api, sched, cfg.ItemDelay, cfg.EphemeralTTL, cfg.NoticeTTL)
	broadcast := services.NewBroadcaster(db, userRepoShim{}, api, cfg.BroadcastDelay)

	router := bot.NewRouter(db, api, gate, ingest, delivery, broadcast, sched, cfg)

	srv := httpapi.NewServer(cfg.Port, db)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops server failed")
		}
	}()

	updates := api.Updates(cfg.UpdateTimeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			router.HandleUpdate(ctx, u)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	api.Stop()
	<-done
	cancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("ops server shutdown")
	}
	if err := shutdownOTel(shutCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	log.Info().Msg("bye")
}

// setupLogger applies the configured level and output format to the global
// zerolog logger.
func setupLogger(cfg config.Config) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
