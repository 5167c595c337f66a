package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/musicfriend/roomstate/internal/broadcast"
	"github.com/musicfriend/roomstate/internal/config"
	"github.com/musicfriend/roomstate/internal/domain"
	"github.com/musicfriend/roomstate/internal/logging"
	"github.com/musicfriend/roomstate/internal/relay"
	"github.com/musicfriend/roomstate/internal/server"
	"github.com/musicfriend/roomstate/internal/store"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRelay(ctx context.Context, cfg *config.Config, st *store.Store, hub *broadcast.Hub) *relay.Relay {
	if cfg.RedisURL == "" {
		return nil
	}

	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	rel := relay.New(rdb, func(update domain.StateUpdate) {
		if _, err := st.Apply(update); err != nil {
			slog.Warn("Dropping invalid relayed update", "error", err)
			return
		}
		if hub != nil {
			hub.Broadcast(update)
		}
	})
	go rel.Start(ctx)
	return rel
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub, cancelRelay context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if hub != nil {
			hub.Stop()
		}
		cancelRelay()

		close(done)
	}()

	return done
}

func main() {
	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	clock := clockwork.NewRealClock()
	st := store.New(cfg.InactiveThreshold, clock)

	var hub *broadcast.Hub
	if cfg.EnablePush {
		hub = broadcast.NewHub(clock, cfg.MaxWSConnections)
	}

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	rel := setupRelay(relayCtx, cfg, st, hub)

	var updateRelay server.UpdateRelay
	if rel != nil {
		updateRelay = rel
	}
	srv := server.NewServer(cfg, st, hub, updateRelay)

	done := runGracefulShutdown(srv, hub, cancelRelay)

	slog.Info("Room state service starting",
		"env", cfg.AppEnv,
		"inactive_threshold", cfg.InactiveThreshold,
		"relay", rel != nil,
	)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
