package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"followe/internal/amqp"
	"followe/internal/config"
	apphttp "followe/internal/http"
	applog "followe/internal/log"
	"followe/internal/notify"
	"followe/internal/scheduler"
	"followe/internal/storage"
	"followe/internal/store"
	"followe/internal/store/memory"
)

func main() {
	// .env is for local development; missing file is fine
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		items store.ItemStore
		perms store.PermissionSource
	)
	switch cfg.DataBackend {
	case "memory":
		mem := memory.New()
		items, perms = mem, mem
		logger.Info("initialized memory backend", "backend", cfg.DataBackend)
	default:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		items, perms = repo, repo
		logger.Info("initialized sqlite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)
	}

	sinks := []notify.AlertSink{notify.NewLogSink(logger)}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("failed to initialize AMQP client, alerts stay local", "error", err)
		} else {
			defer amqpClient.Close()
			sinks = append(sinks, amqpClient)
			logger.Info("AMQP alert fanout enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	dispatcher := notify.NewDispatcher(logger, sinks...)
	sched := scheduler.New(items, perms, store.SystemClock{}, dispatcher.Fire, logger)

	srv := apphttp.NewServer(":"+cfg.Port, items, perms, sched, &apphttp.Options{
		CacheTTL:     cfg.CacheTTL,
		CacheMaxSize: cfg.CacheMaxSize,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.RescheduleAll(ctx); err != nil {
		logger.Error("initial reschedule failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.RescheduleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := sched.RescheduleAll(ctx); err != nil {
					logger.Error("periodic reschedule failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sched.CancelAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
