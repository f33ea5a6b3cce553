package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleaning-crm/api/internal/config"
	"github.com/cleaning-crm/api/internal/database"
	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/notify"
	"github.com/cleaning-crm/api/internal/router"
	"github.com/cleaning-crm/api/internal/ws"
	"github.com/cleaning-crm/api/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	if err := run(); err != nil {
		logger.Log.WithError(err).Fatal("server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.DatabaseURL, migrations.FS); err != nil {
			return err
		}
		logger.Log.Info("migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifiers := notify.Multi{notify.NewHub(hub)}
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, database.New(pool))
		if err != nil {
			logger.Log.WithError(err).Warn("telegram notifications disabled")
		} else {
			notifiers = append(notifiers, tg)
		}
	}
	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		k := notify.NewKafka(brokers, cfg.Kafka.Topic)
		defer k.Close()
		notifiers = append(notifiers, k)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, pool, hub, notifiers, loc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithField("port", cfg.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
