package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"telecom-bundle-chat/internal/broker"
	"telecom-bundle-chat/internal/cache"
	"telecom-bundle-chat/internal/catalog"
	"telecom-bundle-chat/internal/completion"
	"telecom-bundle-chat/internal/config"
	"telecom-bundle-chat/internal/database"
	"telecom-bundle-chat/internal/events"
	"telecom-bundle-chat/internal/features"
	"telecom-bundle-chat/internal/handler"
	"telecom-bundle-chat/internal/middleware"
	"telecom-bundle-chat/internal/service"
	"telecom-bundle-chat/internal/tracing"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "Optional config file (yaml, json or env)")
	port := flag.String("port", "", "Server port (overrides SERVER_PORT)")
	dbPath := flag.String("db", "", "SQLite database file (switches DB_DRIVER to sqlite3)")
	migrate := flag.Bool("migrate", false, "Apply migrations before serving (overrides DB_AUTO_MIGRATE)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Driver = database.DriverSQLite
		cfg.Database.Path = *dbPath
	}
	if *migrate {
		cfg.Database.AutoMigrate = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: handler.ServiceName,
		Version:     version,
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.DSN(), database.PoolOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, "up"); err != nil {
			return err
		}
	}

	admins := cfg.AdminPhones()
	db.Diagnose(ctx, logger, diagnosticPhones(cfg.Chat.DiagnosticPhone, admins)...)

	flags := features.NewManager()
	flags.Register(features.CatalogCache, cfg.Cache.Enabled, "serve category lists and offer searches from the cache")
	flags.Register(features.EventHooks, cfg.Events.Enabled, "publish chat lifecycle events")
	flags.Register(features.CompletionFallback, cfg.Chat.Mode == config.ModeHybrid, "answer unmatched messages through the completion service")
	for _, f := range flags.All() {
		logger.Info("feature flag", "name", f.Name, "enabled", f.Enabled, "description", f.Description)
	}

	catalogCache := newCache(ctx, cfg.Cache, logger)
	if closer, ok := catalogCache.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCompleter()

	eventManager := events.NewManager(cfg.Events.Enabled, logger)
	if cfg.Events.Enabled {
		pub := newPublisher(cfg.Events, logger)
		defer pub.Close()
		eventManager.Subscribe(events.Forward(pub))
	}

	svc := service.NewService(db,
		catalog.New(db, catalog.Options{
			Cache:  catalogCache,
			TTL:    cfg.Cache.TTL,
			Flags:  flags,
			Logger: logger,
		}),
		service.Options{
			Mode:        cfg.Chat.Mode,
			Completer:   completer,
			Events:      eventManager,
			Flags:       flags,
			Logger:      logger,
			AdminPhones: admins,
		},
	)
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware(handler.ServiceName))
	}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer limiter.Stop()
		r.Use(middleware.RateLimitMiddleware(limiter))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/chat", h.Chat)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server",
			"addr", server.Addr,
			"mode", cfg.Chat.Mode,
			"database", cfg.Database.Driver,
			"rate_limit", cfg.RateLimit.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return eventManager.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// diagnosticPhones returns the diagnostic phone and every admin phone.
func diagnosticPhones(diagnostic string, admins map[string]bool) []string {
	phones := []string{diagnostic}
	for phone := range admins {
		phones = append(phones, phone)
	}
	return phones
}

// newCache returns nil when caching is disabled. Redis is used when an
// address is configured and reachable; the in-memory cache otherwise.
func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RedisAddr == "" {
		logger.Info("catalog cache: in-memory")
		return cache.NewInMemoryCache()
	}

	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, handler.ServiceName)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory catalog cache", "addr", cfg.RedisAddr, "error", err)
		return cache.NewInMemoryCache()
	}
	logger.Info("catalog cache: redis", "addr", cfg.RedisAddr)
	return rc
}

func newCompleter(ctx context.Context, cfg *config.Config) (completion.Client, func() error, error) {
	noop := func() error { return nil }
	if cfg.Chat.Mode == config.ModeRouter {
		return nil, noop, nil
	}

	switch cfg.Completion.Provider {
	case "gemini":
		gc, err := completion.NewGeminiClient(ctx, cfg.Completion.APIKey, cfg.Completion.Model)
		if err != nil {
			return nil, noop, err
		}
		return completion.WithTimeout(gc, cfg.Completion.Timeout), gc.Close, nil
	default:
		oc := completion.NewOpenAIClient(&http.Client{}, cfg.Completion.BaseURL, cfg.Completion.APIKey, cfg.Completion.Model)
		return completion.WithTimeout(oc, cfg.Completion.Timeout), noop, nil
	}
}

// newPublisher connects to the configured broker, logging events instead
// when none is configured or the broker is unreachable.
func newPublisher(cfg config.EventsConfig, logger *slog.Logger) broker.Publisher {
	var (
		pub broker.Publisher
		err error
	)
	switch cfg.Provider {
	case "nats":
		pub, err = broker.NewNATSPublisher(cfg.NATSURL, cfg.Subject)
	case "amqp":
		pub, err = broker.NewAMQPPublisher(cfg.AMQPURL, cfg.Subject)
	default:
		return broker.NewLogPublisher(logger)
	}
	if err != nil {
		logger.Warn("event broker unavailable, logging events instead", "provider", cfg.Provider, "error", err)
		return broker.NewLogPublisher(logger)
	}
	logger.Info("forwarding chat events", "provider", cfg.Provider, "subject", cfg.Subject)
	return pub
}
