package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"grievance/backend/internal/analysis"
	"grievance/backend/internal/api"
	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/api/middleware"
	"grievance/backend/internal/assignment"
	"grievance/backend/internal/auth"
	"grievance/backend/internal/cache"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/config"
	"grievance/backend/internal/lifecycle"
	"grievance/backend/internal/localization"
	"grievance/backend/internal/logger"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/realtime"
	"grievance/backend/internal/routing"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/summary"
	"grievance/backend/internal/telegram"
	"grievance/backend/internal/trust"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		// Plain env vars and configs/config.yaml still apply.
		_, _ = os.Stderr.WriteString("warning: no .env file loaded\n")
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logger, cfg.Server.Mode); err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("server stopped with error", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Settings) error {
	log := logger.WithComponent("server")
	log.Info("starting grievance backend", "addr", cfg.Server.Addr(), "mode", cfg.Server.Mode)

	db, err := storage.OpenPostgres(cfg.Database, logger.WithComponent("gorm"))
	if err != nil {
		return err
	}

	rdb, err := storage.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, live timelines disabled and cache kept in memory", "error", err)
		rdb = nil
	}

	store := storage.NewStorageService(db, rdb)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if _, err := routing.SeedDepartments(ctx, store, config.Keywords().Registry, logger.WithComponent("routing")); err != nil {
		return err
	}

	localizer, err := localization.New()
	if err != nil {
		return err
	}

	var (
		notifier assignment.Notifier = notify.Noop{}
		botAPI   *tgbotapi.BotAPI
	)
	if cfg.Telegram.Enabled {
		botAPI, err = telegram.Connect(cfg.Telegram.BotToken, logger.WithComponent("telegram"))
		if err != nil {
			return err
		}
		notifier = notify.NewTelegram(botAPI, localizer, cfg.Telegram.Language, logger.WithComponent("notify"))
	}

	lc := lifecycle.NewService(store, logger.WithComponent("lifecycle"))
	assigner := assignment.NewService(store, notifier, logger.WithComponent("assignment"))
	analyzer := analysis.NewAnalyzer(analysis.NewClassifier(config.Keywords()), nil, logger.WithComponent("analysis"))
	complaints := complaint.NewService(store, complaint.Deps{
		Analyzer: analyzer,
		Trust:    trust.NewScorer(store),
		Resolver: routing.NewResolver(store, config.Keywords().Routing, logger.WithComponent("routing")),
		Assigner: assigner,
		SLA:      lc,
	}, logger.WithComponent("complaint")).WithPublicCache(publicCache(rdb), cfg.Pipeline.PublicCacheTTL())
	lc.WithListener(complaints)
	assigner.WithListener(complaints)

	var stream *realtime.Stream
	if rdb != nil {
		stream = realtime.NewStream(rdb, logger.WithComponent("realtime"))
	}

	if botAPI != nil {
		svc := telegram.NewBotService(botAPI, complaints, localizer, logger.WithComponent("telegram"))
		go svc.Run(ctx, botAPI)
	}

	policy, err := middleware.NewPolicy(logger.WithComponent("policy"))
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(&handler.Handler{
		Complaints: complaints,
		Lifecycle:  lc,
		Assignment: assigner,
		Summaries:  summary.NewService(store, summary.Disabled{}, logger.WithComponent("summary")),
		Analyzer:   analyzer,
		Stream:     stream,
		Logger:     logger.WithComponent("http"),
	}, auth.NewManager(cfg.Auth), policy, logger.WithComponent("http"), api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
	return nil
}

func publicCache(rdb *redis.Client) cache.Cache {
	if rdb == nil {
		return cache.NewMemory()
	}
	return cache.NewRedis(rdb, cache.DefaultPrefix, logger.WithComponent("cache"))
}
