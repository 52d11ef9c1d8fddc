package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gitsum/internal/auth"
	"gitsum/internal/config"
	"gitsum/internal/keys"
	"gitsum/internal/middleware"
	"gitsum/internal/ratelimit"
	"gitsum/internal/storage"
	"gitsum/internal/summarizer"
)

// Dependencies aggregates all services the HTTP layer needs. They are
// built once at startup and shared read-only across requests.
type Dependencies struct {
	DB         *storage.DB
	Redis      *storage.RedisClient // nil when Redis is not configured
	Users      *storage.UserRepository
	Resolver   *auth.SessionResolver
	Gate       *auth.Gate
	Keys       *keys.Service
	RateLimit  ratelimit.Limiter
	Summarizer *summarizer.Service
	Logger     *slog.Logger
}

// NewRouter creates an HTTP router with all dependencies wired up.
func NewRouter(cfg *config.Config, logger *slog.Logger) (http.Handler, *Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		KeyCacheSize:    cfg.Database.KeyCacheSize,
		KeyCacheTTL:     cfg.Database.KeyCacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	userRepo := storage.NewUserRepository(db)
	keyRepo := storage.NewAPIKeyRepository(db)

	// Redis is optional; without it the per-key request limiter degrades
	// to a no-op and the quota gate alone bounds usage.
	var redisClient *storage.RedisClient
	var limiter ratelimit.Limiter = ratelimit.NewNoopLimiter()
	if cfg.Redis.Address != "" {
		redisClient, err = storage.NewRedisClient(storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		limiter = ratelimit.NewRateLimiter(redisClient.Client(), cfg.RateLimit.RequestsPerMinute)
	}

	// The summarization collaborator is optional too; without an API key
	// every request takes the non-AI extraction path.
	var llm summarizer.Summarizer
	if cfg.Summarizer.APIKey != "" {
		llm, err = summarizer.NewLLMClient(summarizer.LLMConfig{
			APIKey:  cfg.Summarizer.APIKey,
			BaseURL: cfg.Summarizer.BaseURL,
			Model:   cfg.Summarizer.Model,
			Timeout: cfg.Summarizer.Timeout,
		})
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize summarizer: %w", err)
		}
	}

	deps := &Dependencies{
		DB:         db,
		Redis:      redisClient,
		Users:      userRepo,
		Resolver:   auth.NewSessionResolver(cfg.Session.CookieName, cfg.Session.Secret, userRepo),
		Gate:       auth.NewGate(keyRepo),
		Keys:       keys.NewService(keyRepo, logger),
		RateLimit:  limiter,
		Summarizer: summarizer.NewService(summarizer.NewReadmeFetcher(), llm, logger),
		Logger:     logger,
	}

	return NewRouterWithDeps(deps), deps, nil
}

// NewRouterWithDeps builds the route tree over already-constructed
// dependencies. Split out so handler tests can inject fakes.
func NewRouterWithDeps(deps *Dependencies) http.Handler {
	keysHandler := NewKeysHandler(deps.Keys, deps.Logger)
	validateHandler := NewValidateHandler(deps.Gate, deps.Logger)
	authHandler := NewAuthHandler(deps.Resolver, deps.Users, deps.Logger)
	summarizeHandler := NewSummarizeHandler(deps.Summarizer, deps.Logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", deps.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/session", authHandler.ProvisionSession)

		// Key validation is authenticated by possession of the key itself.
		r.Post("/keys/validate", validateHandler.Validate)

		// Dashboard CRUD, session-scoped.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(deps.Resolver))
			r.Get("/keys", keysHandler.List)
			r.Post("/keys", keysHandler.Create)
			r.Put("/keys/{id}", keysHandler.Update)
			r.Delete("/keys/{id}", keysHandler.Delete)
		})

		// The metered endpoint. Burst limiting runs before the quota gate
		// so a rejected burst is never charged.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestRate(deps.RateLimit, deps.Logger))
			r.Use(middleware.KeyAuth(deps.Gate))
			r.Post("/github-summarizer", summarizeHandler.Summarize)
		})
	})

	return r
}

func (deps *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := deps.DB.Health(r.Context()); err != nil {
		deps.Logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Close releases shared clients in reverse construction order.
func (deps *Dependencies) Close() {
	if deps.Redis != nil {
		deps.Redis.Close()
	}
	if deps.DB != nil {
		deps.DB.Close()
	}
}
