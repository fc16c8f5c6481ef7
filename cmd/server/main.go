package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avelark/parley/internal/adapters/http"
	"github.com/avelark/parley/internal/app"
	"github.com/avelark/parley/internal/auth"
	"github.com/avelark/parley/internal/config"
	"github.com/avelark/parley/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	messages, err := storage.Open(cfg.DataDir, cfg.HistoryPage)
	if err != nil {
		// Without the store the write path cannot serve; refuse to start.
		log.Fatal().Err(err).Msg("failed to open message store")
	}
	defer messages.Close()

	presence := app.NewPresence()
	rooms := app.NewRooms()
	deps := router.Deps{
		Presence:  presence,
		Rooms:     rooms,
		Relay:     app.NewRelay(presence, rooms),
		Signaling: app.NewSignaling(presence, rooms),
		Verifier:  auth.NewVerifier(cfg.Secret, cfg.TokenTTL),
		Messages:  messages,
	}

	r := router.SetupRouter(ctx, cfg, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Parley server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
