package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voicebackend/internal/api"
	"github.com/nikhilbhutani/voicebackend/internal/api/middleware"
	"github.com/nikhilbhutani/voicebackend/internal/config"
	"github.com/nikhilbhutani/voicebackend/internal/multimodal/stt"
	"github.com/nikhilbhutani/voicebackend/internal/multimodal/tts"
	"github.com/nikhilbhutani/voicebackend/internal/observability"
	"github.com/nikhilbhutani/voicebackend/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Observability.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	obs, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		slog.Error("failed to set up observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown", "error", err)
		}
	}()

	transcriber, err := stt.NewFromConfig(cfg.STT)
	if err != nil {
		slog.Error("failed to build transcriber", "error", err)
		os.Exit(1)
	}
	synthesizer := tts.NewCartesia(tts.CartesiaConfig{
		APIKey:  cfg.TTS.APIKey,
		BaseURL: cfg.TTS.BaseURL,
		Version: cfg.TTS.Version,
		ModelID: cfg.TTS.ModelID,
		VoiceID: cfg.TTS.VoiceID,
		Timeout: time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
	})
	svc := voice.NewService(transcriber, synthesizer, obs, logger)

	// Rate limiting (optional): Redis when reachable, in-process otherwise
	var (
		rdb     *redis.Client
		limiter middleware.Limiter
	)
	if cfg.RateLimit.RequestsPerMinute > 0 {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, rate limiting in memory", "error", err)
			rdb.Close()
			rdb = nil
			mem := middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute)
			defer mem.Close()
			limiter = mem
		} else {
			defer rdb.Close()
			limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute)
		}
	}

	router := api.NewRouter(cfg, svc, rdb, limiter, obs)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting voice server",
			"addr", cfg.Addr(),
			"route", cfg.Server.VoiceRoute,
			"transcriber", transcriber.Name(),
			"synthesizer", synthesizer.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
