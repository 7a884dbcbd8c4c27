package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/app"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/config"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/appointment"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/diagnostic"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/signalement"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/stock"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/domain/user"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/apiclient"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/auth"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/cache"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/httpx"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/metrics"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/middleware"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/scheduler"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/session"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/validation"
	"github.com/QAJJOUR-Farid/hopital-management-sub000/internal/platform/websocket"
)

const version = "0.1.0"

// server is the assembled gateway.
type server struct {
	e        *echo.Echo
	cfg      *config.Config
	client   *apiclient.Client
	registry *app.Registry
	reloader *scheduler.Reloader
	closers  []func() error
	logger   zerolog.Logger
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		logger = logger.Level(lvl)
	}
	return logger
}

// buildServer wires the gateway from cfg without starting it.
func buildServer(cfg *config.Config, logger zerolog.Logger) (*server, error) {
	client, err := apiclient.New(apiclient.Config{
		BaseURL:           cfg.BackendURL,
		Timeout:           cfg.BackendTimeout,
		RequestsPerSecond: cfg.BackendRPS,
		Burst:             cfg.BackendBurst,
		Logger:            logger,
	}, nil)
	if err != nil {
		return nil, err
	}

	s := &server{cfg: cfg, client: client, logger: logger}

	// Sessions and the shared reference cache live in Redis when configured
	var (
		shared cache.Cache   = cache.NewMemory()
		store  session.Store = session.NewMemoryStore()
	)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		shared = rc
		store = session.NewRedisStore(rc)
		s.closers = append(s.closers, rc.Close)
		logger.Info().Msg("using redis for sessions and references")
	}

	v := validation.New()
	hub := websocket.NewHub(logger)
	deps := app.Deps{
		Client:       client,
		Validator:    v,
		Shared:       shared,
		ReferenceTTL: cfg.ReferenceTTL,
		Events:       hub,
		Logger:       logger,
	}
	s.registry = app.NewRegistry(deps)
	sessions := session.NewManager(store, user.NewAuthenticator(client), cfg.SessionTTL, logger)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	limiter := middleware.NewRateLimiter(rateLimitCfg)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpx.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, func(path string) bool {
		return strings.HasPrefix(path, "/metrics") || path == "/api/v1/events"
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/backend", func(c echo.Context) error {
		if err := client.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unavailable",
				"message": apiclient.UserMessage(err),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "backend": client.BaseURL()})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// API groups
	apiV1 := e.Group("/api/v1")
	sessionHandler := app.NewSessionHandler(sessions, s.registry, v, []byte(cfg.SessionSigningKey), cfg.SessionTTL, logger, limiter)
	sessionHandler.RegisterPublic(apiV1)

	secured := apiV1.Group("",
		auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.SessionSigningKey), QueryParam: "access_token"}),
		limiter.Middleware(),
		app.WorkspaceMiddleware(s.registry, sessions),
	)
	sessionHandler.RegisterRoutes(secured)
	appointment.NewHandler(app.AppointmentDesk).RegisterRoutes(secured)
	diagnostic.NewHandler(app.DiagnosticDesk).RegisterRoutes(secured)
	signalement.NewHandler(app.SignalementDesk).RegisterRoutes(secured)
	user.NewHandler(app.UserService).RegisterRoutes(secured)
	stock.NewHandler(app.StockService).RegisterRoutes(secured)
	websocket.NewHandler(hub, func(c echo.Context) string {
		return auth.SessionIDFromContext(c.Request().Context())
	}, cfg.CORSOrigins).RegisterRoutes(secured)

	// Periodic reload of open dashboards, and eviction of idle workspaces
	idle := cfg.SessionTTL
	s.reloader = scheduler.NewReloader(cfg.ReloadInterval, logger,
		s.registry,
		scheduler.TargetFunc{ID: "evict-idle", Fn: func(context.Context) error {
			if n := s.registry.Evict(idle); n > 0 {
				logger.Info().Int("count", n).Msg("evicted idle workspaces")
			}
			return nil
		}},
	)

	s.e = e
	return s, nil
}

func (s *server) close() {
	s.reloader.Stop()
	s.registry.CloseAll()
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	s, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.reloader.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start reloader")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", cfg.BackendURL).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = s.e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = s.e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
