package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appstore/docs"
	"appstore/internal/completion"
	"appstore/internal/config"
	"appstore/internal/database"
	"appstore/internal/database/migration"
	handlers "appstore/internal/http/handler"
	"appstore/internal/http/middleware"
	"appstore/internal/logging"
	"appstore/internal/otel"
	"appstore/internal/repository/sqlstore"
	"appstore/internal/service"
	"appstore/internal/storage"
)

// @title App Store API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := logging.LoadLocation(cfg.Timezone)
	logger := logging.Setup(cfg.LogLevel, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	driver, err := database.Canonical(cfg.Database.Driver)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid database driver")
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("db_driver", driver).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, driver, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Bundle storage is optional; an empty endpoint yields a no-op store.
	objStore, err := storage.New(cfg.MinIO)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Initialize repositories and services
	docRepo := sqlstore.NewDocumentStore(db, driver, logger)
	seeder := service.NewSeeder(docRepo, logger)
	docSvc := service.NewDocumentService(docRepo, seeder, logger)

	client := completion.NewClient(cfg.Completion, logger)
	genMetrics, err := completion.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register generation metrics")
	}
	generator := completion.NewGenerator(client, genMetrics, logger)
	if !client.Configured() {
		logger.Warn().Str("event", "completion_unconfigured").Msg("ANTHROPIC_API_KEY is empty; generation routes will fail")
	}

	appSvc := service.NewAppService(docRepo, objStore, logger)
	projectSvc := service.NewProjectService(docRepo, client, objStore, logger)
	dashboardSvc := service.NewDashboardService(docRepo, logger)

	if err := seeder.Seed(ctx); err != nil {
		logger.Error().Err(err).Str("event", "seed_failed").Msg("failed to seed default apps")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(recover.New())
	// Server spans; the access log reads trace_id from the span context
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON access log through the process logger
	app.Use(middleware.AccessLog(logger))
	app.Use(cors.New())

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register http metrics")
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, logger)
	cleanupStop := make(chan struct{})
	limiter.StartCleanup(time.Minute, cleanupStop)
	defer close(cleanupStop)

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:              db,
		Documents:       docSvc,
		Apps:            appSvc,
		Projects:        projectSvc,
		Dashboard:       dashboardSvc,
		Generator:       generator,
		Models:          client,
		GenerateLimiter: limiter.Handler(),
		FrontendURL:     cfg.FrontendURL,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info().Str("event", "shutdown").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown failed")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info().Str("event", "listen").Str("addr", addr).Str("db_driver", driver).Msg("server starting")

	if err := app.Listen(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
	<-shutdownDone
}
