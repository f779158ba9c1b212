package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Joulessies/hansel-bot/internal/automod"
	"github.com/Joulessies/hansel-bot/internal/bot"
	"github.com/Joulessies/hansel-bot/internal/config"
	"github.com/Joulessies/hansel-bot/internal/leveling"
	"github.com/Joulessies/hansel-bot/internal/scheduler"
	"github.com/Joulessies/hansel-bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	store.WithAutoModDefaults(cfg.AutoMod.SpamThreshold, cfg.AutoMod.PingThreshold)
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	evaluator := automod.NewEvaluator(time.Duration(cfg.AutoMod.SpamWindowSeconds) * time.Second)
	levels := leveling.NewEngine(store, cfg.Leveling.XPPerMessage)

	botSvc, err := bot.New(cfg, logger, store, evaluator, levels)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	runCtx, stopSweeps := context.WithCancel(context.Background())
	sweeper := scheduler.New(store, botSvc, logger,
		time.Duration(cfg.Scheduler.IntervalSeconds)*time.Second)
	go sweeper.Run(runCtx)

	var server *http.Server
	if cfg.Health.Enabled {
		server = &http.Server{Addr: cfg.Health.Addr}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	stopSweeps()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
