package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"modelbridge/internal/bridge"
	"modelbridge/internal/config"
	"modelbridge/internal/httpapi"
	"modelbridge/internal/llm"
	"modelbridge/internal/registry"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if cfg.LogFormat != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "modelbridge").Logger(), nil
}

// newCapability builds the configured backend. A backend that cannot be
// constructed yields a nil capability, which the bridge reports as NO_MODEL.
func newCapability(cfg config.Config, log zerolog.Logger) (llm.Capability, func()) {
	noop := func() {}
	switch cfg.Backend {
	case config.BackendLlamaServer:
		return llm.NewLlamaServer(llm.LlamaServerConfig{
			BaseURL:        cfg.LlamaServerURL,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			RequestTimeout: cfg.RequestTimeout.D(),
			ConnectTimeout: cfg.ConnectTimeout.D(),
			Logger:         log.With().Str("backend", "llama-server").Logger(),
		}), noop
	case config.BackendLlama:
		m, err := registry.Resolve(cfg.ModelsDir, cfg.Model)
		if err != nil {
			log.Error().Err(err).Str("models_dir", cfg.ModelsDir).Msg("no model to load")
			return nil, noop
		}
		l, err := llm.NewLlama(llm.LlamaConfig{ModelID: m.ID, ModelPath: m.Path})
		if err != nil {
			log.Error().Err(err).Str("model", m.ID).Msg("llama backend")
			return nil, noop
		}
		log.Info().Str("model", m.ID).Str("path", m.Path).Msg("llama backend")
		return l, func() { _ = l.Close() }
	default:
		sc := llm.SimulatedConfig{
			Model:  cfg.Model,
			Delay:  cfg.Simulated.Delay.D(),
			Status: llm.Status(cfg.Simulated.Availability),
		}
		if s := cfg.Simulated.Supported; s != nil && !*s {
			sc.Unsupported = true
		}
		return llm.NewSimulated(sc), noop
	}
}

func newPublisher(cfg config.Config, log zerolog.Logger) (bridge.EventPublisher, func()) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pub := bridge.NewRedisPublisher(client, cfg.Redis.Channel, log.With().Str("publisher", "redis").Logger())
	log.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("publishing lifecycle events to redis")
	return pub, func() {
		_ = pub.Close()
		_ = client.Close()
	}
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	capability, closeCap := newCapability(cfg, log)
	defer closeCap()
	pub, closePub := newPublisher(cfg, log)
	defer closePub()

	b := bridge.New(bridge.Config{
		Capability:      capability,
		Logger:          &log,
		Publisher:       pub,
		MaxQueueDepth:   cfg.MaxQueueDepth,
		MaxWait:         cfg.MaxWait.D(),
		DrainTimeout:    cfg.DrainTimeout.D(),
		GenerateTimeout: cfg.GenerateTimeout.D(),
		StreamBuffer:    cfg.StreamBuffer,
	})

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetWSWriteTimeout(cfg.WSWriteTimeout.D())
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(b),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Str("model", b.Backend()).Msg("modelbridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// streams and generations see the base context first, so handlers return
	cancelBase()
	if err := b.Shutdown(shCtx); err != nil {
		log.Warn().Err(err).Msg("streams did not stop in time")
	}
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	return nil
}
