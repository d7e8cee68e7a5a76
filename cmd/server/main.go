package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pr0mega/BCLLDraft/internal/config"
	"github.com/pr0mega/BCLLDraft/internal/httpapi"
	"github.com/pr0mega/BCLLDraft/internal/hub"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := cfg.Logger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	channel, err := openChannel(cfg, clock, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := channel.Close(); err != nil {
			logger.Warn("closing sync channel", zap.Error(err))
		}
	}()

	h := hub.NewHub(ctx, hub.Config{
		Channel:   channel,
		Clock:     clock,
		Logger:    logger,
		Divisions: cfg.Divisions,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: ":" + cfg.App.Port,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			CORSOrigins: cfg.App.CORSOrigins,
			Clock:       clock,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openChannel picks the snapshot store and notifier from config: memory or a
// gorm database for the slot, in-process or NATS for notifications.
func openChannel(cfg *config.Config, clock clockwork.Clock, logger *zap.Logger) (*snapshot.Channel, error) {
	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.Snapshot.DSN != "" {
		gs, err := snapshot.OpenGormStore(cfg.Snapshot.DSN, !cfg.IsProduction(), clock)
		if err != nil {
			return nil, err
		}
		store = gs
		logger.Info("snapshot store ready", zap.String("driver", driverName(cfg.Snapshot.DSN)))
	}

	var notifier snapshot.Notifier = snapshot.NewLocalNotifier()
	if cfg.NATS.URL != "" {
		natsCfg := snapshot.DefaultNATSConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		nn, err := snapshot.ConnectNATS(natsCfg, logger)
		if err != nil {
			if closer, ok := store.(io.Closer); ok {
				_ = closer.Close()
			}
			return nil, err
		}
		notifier = nn
		logger.Info("snapshot notifications over NATS", zap.String("url", cfg.NATS.URL))
	}

	return snapshot.NewChannel(cfg.Snapshot.Key, store, notifier, logger), nil
}

func driverName(dsn string) string {
	if snapshot.IsPostgresDSN(dsn) {
		return "postgres"
	}
	return "sqlite"
}
