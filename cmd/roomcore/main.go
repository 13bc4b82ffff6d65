package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/telemeet/roomcore/internal/api"
	"github.com/telemeet/roomcore/internal/config"
	"github.com/telemeet/roomcore/internal/transport"
	"github.com/telemeet/roomcore/pkg/room"
	"github.com/telemeet/roomcore/pkg/sdp"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	opts := room.Options{
		APIKey:      cfg.APIKey,
		Region:      cfg.Region,
		DataChannel: cfg.DataChannel,
		Stereo:      cfg.Stereo,
		Agent: room.Agent{
			Name:    "roomcore",
			Version: runtime.Version(),
			Type:    "webrtc",
		},
		Loader:       api.NewClient(cfg.APIBase),
		NewTransport: transport.NewFactory(),
	}

	listener := func(event string, data any) {
		log.Info().Str("event", event).Any("data", data).Msg("notification")
	}

	r, err := room.Bootstrap(ctx, cfg.Room, opts, listener)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}

	r.OnJoin = func() {
		log.Info().Str("room", r.Name).Msg("joined")
	}
	r.OnLeave = func() {
		log.Info().Str("room", r.Name).Msg("left")
		cancel()
	}

	join := room.JoinConfig{
		UserData: map[string]any{"username": cfg.Username},
		Bandwidth: sdp.Bandwidth{
			Audio: cfg.Bandwidth.Audio,
			Video: cfg.Bandwidth.Video,
			Data:  cfg.Bandwidth.Data,
		},
	}
	if err := r.Join(nil, join); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	if err := r.Leave(); err != nil {
		log.Error().Err(err).Msg("leave failed")
	}
	log.Info().Msg("Client exited gracefully")
}
