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

	"github.com/isdelr/pinboard-be/internal/api"
	"github.com/isdelr/pinboard-be/internal/config"
	"github.com/isdelr/pinboard-be/internal/database"
	"github.com/isdelr/pinboard-be/internal/events"
	"github.com/isdelr/pinboard-be/internal/logger"
	"github.com/isdelr/pinboard-be/internal/monitoring"
	"github.com/isdelr/pinboard-be/internal/services"
	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/isdelr/pinboard-be/internal/store/mongostore"
	"github.com/isdelr/pinboard-be/internal/store/sqlitestore"
	"github.com/isdelr/pinboard-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogPretty)

	// Set up the store
	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to initialize store")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := st.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	publishers := events.Multi{hub}
	if cfg.NATSURL != "" {
		nats, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("Failed to connect to NATS")
		}
		defer nats.Close()
		publishers = append(publishers, nats)
	}

	// Set up services
	svc := api.Services{
		Users:    services.NewUserService(st, publishers, cfg.BcryptCost),
		Pins:     services.NewPinService(st, publishers),
		Comments: services.NewCommentService(st, publishers),
		Health:   services.NewHealthService(st),
	}

	// Set up the background comment reconciler
	if cfg.ReconcileSpec != "" {
		reconciler, err := monitoring.NewReconciler(st, cfg.ReconcileSpec)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule comment reconciler")
		}
		reconciler.Start()
		defer reconciler.Stop()
	}

	router := api.NewRouter(hub, svc, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("driver", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// openStore connects to the configured backend and prepares its schema.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		return sqlitestore.New(db), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := database.NewMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, client.Database(cfg.DatabaseName)); err != nil {
			client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		return mongostore.New(client, cfg.DatabaseName), nil
	}
}
