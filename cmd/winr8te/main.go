package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winr8te-bot/internal/bot"
	"winr8te-bot/internal/config"
	"winr8te-bot/internal/mapgen"
	"winr8te-bot/internal/storage"
	"winr8te-bot/internal/vote"

	"go.uber.org/zap"
)

func main() {
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
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	maps := mapgen.New(cfg.RustMaps, logger)

	botSvc, err := bot.New(cfg, logger, store, maps)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	driverCtx, stopDriver := context.WithCancel(context.Background())
	defer stopDriver()
	if cfg.Vote.AutoSchedule && cfg.Vote.ChannelID != "" {
		driver := vote.NewDriver(botSvc.Votes(), cfg.Vote.ChannelID,
			cfg.Vote.CandidateCount, cfg.Vote.StartOffsetHours, cfg.Vote.EndOffsetHours, logger)
		go driver.Run(driverCtx)
	} else {
		logger.Info("auto vote schedule disabled")
	}

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

	stopDriver()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	botSvc.Close(ctx)
}
