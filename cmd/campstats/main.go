// Package main запускает HTTP-сервер сервиса статистики кэмпа.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/campstats/internal/cache"
	"github.com/mmeshcher/campstats/internal/clock"
	"github.com/mmeshcher/campstats/internal/config"
	"github.com/mmeshcher/campstats/internal/feed"
	"github.com/mmeshcher/campstats/internal/handler"
	"github.com/mmeshcher/campstats/internal/middleware"
	"github.com/mmeshcher/campstats/internal/repository"
	"github.com/mmeshcher/campstats/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("timezone error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is not set, sales are kept in memory")
		repo = repository.NewMemoryRepository()
	}

	var feedClient service.FeedClient
	if cfg.FeedAddress != "" {
		feedClient = feed.NewClient(cfg.FeedAddress)
	}

	var snapshots service.SnapshotCache
	if cfg.RedisAddress != "" {
		c := cache.New(cfg.RedisAddress, 10*cfg.RefreshInterval)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			sugar.Warnw("redis unavailable, dashboard cache disabled", "error", err.Error())
			_ = c.Close()
		} else {
			defer c.Close()
			snapshots = c
		}
		cancel()
	}

	opts := service.Options{
		RolloverHours:    cfg.RolloverHours,
		ResolutionHours:  cfg.ResolutionHours,
		CurfewHour:       cfg.CurfewHour,
		CampWindowHour:   cfg.CampWindowHour,
		TrendWindowHours: cfg.TrendWindowHours,
		MaxTrendHours:    cfg.MaxTrendHours,
		MaskEmptyHours:   cfg.MaskEmptyHours,
		RefreshInterval:  cfg.RefreshInterval,
		FeedInterval:     cfg.FeedInterval,
		FeedLookback:     cfg.FeedLookback,
	}

	svc := service.NewService(repo, feedClient, snapshots, clock.NewReal(loc), opts, logger)
	defer svc.Close()

	if cfg.TerminalSecret == "" {
		sugar.Warn("TERMINAL_SECRET is not set, terminal login is disabled")
	}
	terminalAuth := middleware.NewTerminalAuth(cfg.TerminalSecret)
	h := handler.NewHandler(svc, logger, terminalAuth)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Пересчёт снимка дашборда по часам
	g.Go(func() error {
		svc.RunRefresh(ctx)
		return nil
	})

	// Синхронизация с лентой продаж кассовой системы
	g.Go(func() error {
		svc.RunFeedSync(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting campstats server", "addr", cfg.RunAddress, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
