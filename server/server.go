// Package server wires configuration, storage and the HTTP API together.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wastewise-be/cache"
	"wastewise-be/config"
	"wastewise-be/controllers"
	"wastewise-be/events"
	"wastewise-be/middlewares"
	"wastewise-be/realtime"
	"wastewise-be/routes"
	"wastewise-be/services"
	"wastewise-be/store"
	"wastewise-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Deps are the backends a Server runs on.
type Deps struct {
	Store     *store.Store
	Cache     cache.Cache
	Publisher events.Publisher
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	deps     Deps
	engine   *gin.Engine
	hub      *realtime.Hub
	services *services.Services
	started  time.Time
	closers  []func(context.Context) error
}

// New connects to the configured backends. Without MONGODB_URI the server
// runs in demo mode on the in-memory store, without REDIS_ADDRESS on the
// in-memory cache, and without RABBITMQ_URL it publishes no events.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	var deps Deps
	var closers []func(context.Context) error
	fail := func(err error) (*Server, error) {
		closeAll(context.Background(), logger, closers)
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.DBTimeout)
	defer cancel()

	if cfg.DemoMode() {
		logger.Warn("MONGODB_URI not set, running in demo mode with in-memory storage")
		deps.Store = store.NewMemory()
	} else {
		client, db, err := config.ConnectDB(connectCtx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		closers = append(closers, client.Disconnect)
		if err := store.EnsureIndexes(connectCtx, db); err != nil {
			return fail(fmt.Errorf("ensure indexes: %w", err))
		}
		deps.Store = store.NewMongo(db)
	}

	if cfg.Redis.Address == "" {
		logger.Warn("REDIS_ADDRESS not set, using in-memory cache")
		deps.Cache = cache.NewMemory()
	} else {
		client, err := config.ConnectRedis(connectCtx, cfg.Redis, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		deps.Cache = cache.NewRedis(client)
	}

	if cfg.RabbitMQ.URL == "" {
		logger.Info("RABBITMQ_URL not set, domain events are not published")
		deps.Publisher = events.Nop{}
	} else {
		publisher, err := events.DialAMQP(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func(context.Context) error { return publisher.Close() })
		deps.Publisher = publisher
	}

	s := NewWithDeps(cfg, logger, deps)
	s.closers = append(s.closers, closers...)
	return s, nil
}

// NewWithDeps builds a Server on already connected backends.
func NewWithDeps(cfg *config.Config, logger *zap.Logger, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}

	hub := realtime.NewHub(logger)
	svc := services.New(services.Deps{
		Store:     deps.Store,
		Cache:     deps.Cache,
		Publisher: deps.Publisher,
		Notifier:  hub,
		Tokens:    utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL),
		Logger:    logger,
		Clock:     deps.Clock,
	})

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		hub:      hub,
		services: svc,
		started:  deps.Clock(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	if !s.cfg.IsDevelopment() && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middlewares.RequestLogging(s.logger),
		middlewares.Recovery(s.logger, s.cfg.IsDevelopment()),
		cors.New(corsConfig(s.cfg.CORSOrigins)),
	)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	h := routes.Handlers{
		Auth:          controllers.NewAuthController(s.services, s.logger),
		Users:         controllers.NewUserController(s.services, s.logger),
		Communities:   controllers.NewCommunityController(s.services, s.logger),
		Routes:        controllers.NewRouteController(s.services, s.logger),
		Pickups:       controllers.NewPickupController(s.services, s.logger),
		Issues:        controllers.NewIssueController(s.services, s.logger),
		Notifications: controllers.NewNotificationController(s.services, s.hub, s.cfg.CORSOrigins, s.logger),
		Analytics:     controllers.NewAnalyticsController(s.services, s.logger),
		Settings:      controllers.NewSettingsController(s.services, s.logger),
		Authenticate:  middlewares.AuthMiddleware(s.services.Auth, s.logger),
	}
	if s.cfg.IssueLimiter.DailyLimit > 0 {
		h.IssueLimiter = middlewares.IssueRateLimiter(s.deps.Cache, s.cfg.IssueLimiter.KeyPrefix, s.cfg.IssueLimiter.DailyLimit, s.logger)
	}
	api := routes.Register(r, h)
	api.GET("/health", s.health)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

type componentHealth struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

func check(backend string, err error) componentHealth {
	if err != nil {
		return componentHealth{Backend: backend, Status: "down", Error: err.Error()}
	}
	return componentHealth{Backend: backend, Status: "up"}
}

// health reports uptime and whether the storage and cache backends answer.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var storeErr error
	if s.deps.Store.Ping != nil {
		storeErr = s.deps.Store.Ping(ctx)
	}
	storage := check(s.deps.Store.Backend, storeErr)
	cacheHealth := check(s.deps.Cache.Name(), s.deps.Cache.Ping(ctx))

	status := http.StatusOK
	overall := "ok"
	if storeErr != nil || cacheHealth.Error != "" {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"success": status == http.StatusOK,
		"message": "WasteWise API is running",
		"data": gin.H{
			"status":      overall,
			"environment": s.cfg.Env,
			"demoMode":    s.cfg.DemoMode(),
			"uptime":      s.deps.Clock().Sub(s.started).Round(time.Second).String(),
			"storage":     storage,
			"cache":       cacheHealth,
		},
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Services() *services.Services {
	return s.services
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// closes the backends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("address", srv.Addr), zap.String("env", s.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close disconnects websocket clients and releases the backends.
func (s *Server) Close(ctx context.Context) {
	s.hub.Shutdown()
	closeAll(ctx, s.logger, s.closers)
	s.closers = nil
}

// closeAll runs closers in reverse order of acquisition. Failures are logged
// and do not stop the remaining closers.
func closeAll(ctx context.Context, logger *zap.Logger, closers []func(context.Context) error) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			logger.Warn("failed to close backend", zap.Error(err))
		}
	}
}
