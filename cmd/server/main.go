package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"arbor/internal/cache"
	"arbor/internal/config"
	"arbor/internal/domain/repositories"
	"arbor/internal/handler"
	"arbor/internal/middleware"
	"arbor/internal/repository/memory"
	"arbor/internal/repository/postgres"
	"arbor/internal/service/tree"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	// Optionally tee logs to a rotating file (keeps the 5 most recent)
	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 5)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.Store,
		"table_prefix", cfg.TablePrefix,
	)

	ctx := context.Background()

	// Create the durable node store
	var nodeRepo repositories.NodeRepository
	switch cfg.Store {
	case "memory":
		nodeRepo = memory.NewNodeRepository()
		logger.Warn("using in-memory store, data will not survive restarts")
	default:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		logger.Info("database connected",
			"max_conns", 25,
			"min_conns", 5,
		)

		nodeRepo = postgres.NewNodeRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
	}

	// Create the tree cache. Redis is the production backend; the in-memory
	// cache serves local development alongside the in-memory store.
	var treeCache cache.Cache
	if cfg.Store == "memory" {
		treeCache = cache.NewMemoryCache()
	} else {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPasswd,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		treeCache = redisCache

		logger.Info("cache connected", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	// Create the coordinator and handlers
	coordinator := tree.NewCoordinator(nodeRepo, treeCache, cfg.CacheTTL, logger)
	nodeHandler := handler.NewNodeHandler(coordinator, logger)
	treeHandler := handler.NewTreeHandler(coordinator, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check (outside the project-scoped API)
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Node routes. The move route comes first so the {path...} wildcard
	// routes don't swallow it.
	api := http.NewServeMux()
	api.HandleFunc("POST /api/nodes/move/{path...}", nodeHandler.MoveNode)
	api.HandleFunc("POST /api/nodes", nodeHandler.CreateNode)
	api.HandleFunc("GET /api/nodes/{path...}", nodeHandler.GetNode)
	api.HandleFunc("PATCH /api/nodes/{path...}", nodeHandler.UpdateNode)
	api.HandleFunc("DELETE /api/nodes/{path...}", nodeHandler.DeleteNode)

	// Listing routes
	api.HandleFunc("GET /api/tree", treeHandler.ListTree)

	// Project scoping applies to the API only, not the health check
	mux.Handle("/api/", middleware.Project()(api))

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Routes
	h = middleware.Recovery(logger)(h)

	// CORS - Must be first to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "X-Project-ID", "X-Account-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt, then drain in-flight requests
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
