// Command bot is the service entrypoint. It wires configuration, logging,
// tracing, the SQLite store, the Telegram client, the HTTP surface (preview
// proxy + operator API), and the long-poll update loop, then runs until a
// shutdown signal arrives.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/selmak/go-content-bot/internal/bot"
	"github.com/selmak/go-content-bot/internal/config"
	httpapi "github.com/selmak/go-content-bot/internal/http"
	"github.com/selmak/go-content-bot/internal/netguard"
	"github.com/selmak/go-content-bot/internal/observability"
	"github.com/selmak/go-content-bot/internal/platform/telegram"
	"github.com/selmak/go-content-bot/internal/repo"
	"github.com/selmak/go-content-bot/internal/services"
	"github.com/selmak/go-content-bot/internal/sysutil"
	"github.com/selmak/go-content-bot/internal/token"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if err := repo.SeedVipSettings(db, cfg.VIP.PriceStars, cfg.VIP.DurationDays, cfg.VIP.Description); err != nil {
		log.Fatal().Err(err).Msg("settings seed failed")
	}

	// Platform client.
	tg, err := telegram.New(cfg.BotToken, cfg.OwnerID)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram connect failed")
	}

	// Services.
	signer := token.NewSigner(cfg.BotToken)
	guard := &netguard.Guard{}
	ingestSvc := services.NewIngestService(guard, tg, cfg.Ingest.MaxFileBytes, cfg.Ingest.DownloadTimeout, cfg.Ingest.TempDir)
	catalogSvc := services.NewCatalogService(db, ingestSvc)
	entSvc := services.NewEntitlementService(db)
	ledgerSvc := services.NewLedgerService(db, cfg.PayCurrency, cfg.VIP)
	deliverySvc := services.NewDeliveryService(tg)

	// HTTP surface.
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, catalogSvc, tg, cfg)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Bot update loop.
	b := bot.New(db, tg, entSvc, ledgerSvc, deliverySvc, catalogSvc, signer, cfg)
	updates := tg.Updates(30)
	go b.Run(ctx, updates)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	tg.StopUpdates()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
}
