package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rpattn/cvetrack/internal/aggregate"
	"github.com/rpattn/cvetrack/internal/config"
	"github.com/rpattn/cvetrack/internal/db"
	"github.com/rpattn/cvetrack/internal/export"
	"github.com/rpattn/cvetrack/internal/graphql"
	"github.com/rpattn/cvetrack/internal/middleware"
	"github.com/rpattn/cvetrack/internal/query"
	"github.com/rpattn/cvetrack/internal/repository"
	"github.com/rpattn/cvetrack/internal/suggest"
)

// initLogger sets up the Zap logger to log to the console in a human
// readable format.
func initLogger() *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	logger, _ := prodConfig.Build()
	return logger
}

func main() {
	logger := initLogger()
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(os.Getenv("CVETRACK_CONFIG"), logger)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	conn, err := db.NewConnection(ctx, cfg.DB, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, cfg.App.MigrationsPath, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Create repositories
	changeRepo := repository.NewChangeRepository(conn.Pool)
	optionRepo := repository.NewOptionRepository(conn.Pool)
	statsRepo := repository.NewStatsRepository(conn.Pool)

	// Create services
	queryService := query.NewService(changeRepo, cfg.App.MaxPage, logger)
	suggestService := suggest.NewService(changeRepo, cfg.App.SuggestLimit, logger)
	trendCache := aggregate.NewTrendCache(cfg.App.TrendCacheTTL)
	aggregateService := aggregate.NewService(changeRepo, optionRepo, statsRepo, trendCache, cfg.App.TopN, logger)
	exportService := export.NewService(changeRepo, logger,
		export.WithExportDirectory(cfg.App.ExportDir),
		export.WithPageSize(cfg.App.ExportPageSize),
		export.WithMaxRows(cfg.App.ExportMaxRows),
	)

	schema, err := graphql.NewSchema(aggregateService)
	if err != nil {
		logger.Fatal("failed to build graphql schema", zap.Error(err))
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})
	logged := middleware.LoggingMiddleware(logger)
	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(logged(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/cvechanges/export/", wrap(export.NewHTTPHandler(exportService, queryService)))
	mux.Handle("/api/cvechanges/suggest/", wrap(suggest.NewHTTPHandler(suggestService)))
	mux.Handle("/api/cvechanges/", wrap(query.NewHTTPHandler(queryService)))
	mux.Handle("/api/stats/", wrap(aggregate.NewHTTPHandler(aggregateService)))
	mux.Handle("/api/graphql", wrap(graphql.NewHTTPHandler(schema)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
