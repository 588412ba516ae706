package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/scaninv/internal/cache"
	"github.com/vbonduro/scaninv/internal/config"
	"github.com/vbonduro/scaninv/internal/db"
	"github.com/vbonduro/scaninv/internal/flow"
	"github.com/vbonduro/scaninv/internal/logging"
	"github.com/vbonduro/scaninv/internal/recordstore"
	"github.com/vbonduro/scaninv/internal/recordstore/appwrite"
	"github.com/vbonduro/scaninv/internal/service"
	"github.com/vbonduro/scaninv/internal/store"
	"github.com/vbonduro/scaninv/internal/vision"
	claudevision "github.com/vbonduro/scaninv/internal/vision/claude"
	ollamavision "github.com/vbonduro/scaninv/internal/vision/ollama"
	"github.com/vbonduro/scaninv/internal/web"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	records, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	lookupCache, closeCache, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	resolver := flow.NewResolver(records, lookupCache, cfg.LookupTimeout, logger)
	sessions := flow.NewRegistry(resolver, cfg.MaxSessions, cfg.SessionTTL, logger)
	inventory := service.NewInventoryService(records, resolver, cfg.LowStockThreshold, logger)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.LookupTimeout)
	if err := inventory.Ready(pingCtx); err != nil {
		logger.Warn("store not reachable at startup", "backend", cfg.StoreBackend, "error", err)
	}
	cancel()

	server := web.NewServer(inventory, sessions, newBarcodeReader(cfg, logger), logger)
	httpServer := server.HTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newStore(cfg *config.Config, logger *slog.Logger) (recordstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case "appwrite":
		logger.Info("using Appwrite store", "endpoint", cfg.AppwriteEndpoint, "collection", cfg.AppwriteCollectionID)
		client := appwrite.New(appwrite.Config{
			Endpoint:     cfg.AppwriteEndpoint,
			ProjectID:    cfg.AppwriteProjectID,
			DatabaseID:   cfg.AppwriteDatabaseID,
			CollectionID: cfg.AppwriteCollectionID,
			APIKey:       cfg.AppwriteAPIKey,
		})
		return client, func() {}, nil
	default:
		logger.Info("using SQLite store", "path", cfg.DBPath)
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRecordStore(database), closeDB(database, logger), nil
	}
}

func closeDB(database *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
}

func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		logger.Info("using Redis lookup cache", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		return cache.NewRedis(rdb, cfg.CacheTTL), func() {
			if err := rdb.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}, nil
	default:
		logger.Info("using in-memory lookup cache", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return cache.NewMemory(cfg.CacheSize, cfg.CacheTTL), func() {}, nil
	}
}

func newBarcodeReader(cfg *config.Config, logger *slog.Logger) vision.BarcodeReader {
	switch cfg.VisionBackend {
	case "claude":
		logger.Info("using Claude barcode reader", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeReader(cfg.ClaudeAPIKey, cfg.ClaudeModel,
			anthropic.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}))
	case "ollama":
		logger.Info("using Ollama barcode reader", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaReader(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("photo scanning disabled")
		return nil
	}
}
