package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/voicebackend/internal/api/handlers"
	"github.com/nikhilbhutani/voicebackend/internal/api/middleware"
	"github.com/nikhilbhutani/voicebackend/internal/auth"
	"github.com/nikhilbhutani/voicebackend/internal/config"
	"github.com/nikhilbhutani/voicebackend/internal/observability"
)

type Router struct {
	mux     *chi.Mux
	cfg     *config.Config
	redis   *redis.Client
	voice   handlers.Responder
	limiter middleware.Limiter
	obs     *observability.Provider
}

// NewRouter wires the HTTP surface. rdb and limiter may be nil; a nil limiter
// disables rate limiting.
func NewRouter(cfg *config.Config, svc handlers.Responder, rdb *redis.Client, limiter middleware.Limiter, obs *observability.Provider) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		cfg:     cfg,
		redis:   rdb,
		voice:   svc,
		limiter: limiter,
		obs:     obs,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.AllowedOrigins))

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	if h := rt.obs.PrometheusHandler(); h != nil {
		r.Method(http.MethodGet, "/metrics", h)
	}

	voiceH := handlers.NewVoiceHandler(rt.voice, rt.cfg.Server.MaxFormMemory)
	r.Group(func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter))
		}
		if rt.cfg.Auth.JWTSecret != "" {
			r.Use(auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret).Authenticate)
		}
		r.Post(rt.cfg.Server.VoiceRoute, voiceH.Exchange)
	})

	return r
}
