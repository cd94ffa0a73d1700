package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/mr1hm/go-neo-watch/internal/api"
	"github.com/mr1hm/go-neo-watch/internal/config"
	internalgrpc "github.com/mr1hm/go-neo-watch/internal/grpc"
	"github.com/mr1hm/go-neo-watch/internal/ingestion"
	"github.com/mr1hm/go-neo-watch/internal/livemetrics"
	"github.com/mr1hm/go-neo-watch/internal/logging"
	"github.com/mr1hm/go-neo-watch/internal/neo"
	"github.com/mr1hm/go-neo-watch/internal/observability"
	"github.com/mr1hm/go-neo-watch/internal/repository"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port, "grpc_port", cfg.GRPC.Port)

	collector, err := observability.NewCollector(nil)
	if err != nil {
		logging.Fatalf("Failed to register metrics: %v", err)
	}

	dataset, err := neo.LoadDatasetFile(cfg.Fallback.DatasetPath)
	if err != nil {
		logging.Fatalf("Failed to load fallback dataset: %v", err)
	}
	slog.Info("fallback dataset loaded", "records", dataset.Len())

	var (
		db    *repository.SQLiteDB
		cache repository.NEOCache
	)
	if cfg.Cache.Enabled {
		db, err = repository.NewSQLiteDB(cfg.Cache.Path)
		if err != nil {
			logging.Fatalf("Failed to initialize cache database: %v", err)
		}
		defer db.Close()
		cache = db
	}

	if cfg.NASA.APIKey == "" {
		slog.Warn("NASA_API_KEY is not set, every request will be served from the fallback dataset")
	}

	client := neo.NewClient(cfg.NASA.BaseURL, cfg.NASA.APIKey, cfg.NASA.Timeout)
	svc := neo.NewService(client, dataset, neo.Options{
		Cache:           cache,
		CacheTTL:        cfg.Cache.TTL,
		UpstreamTimeout: cfg.NASA.Timeout,
		Recorder:        collector,
		DefaultPageSize: cfg.NASA.DefaultPageSize,
		Logger:          slog.Default(),
	})

	store := selection.NewStore()
	defer store.Close()

	gen := livemetrics.NewGenerator(store, livemetrics.Options{
		Interval: cfg.LiveMetrics.Interval,
		Recorder: collector,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Cache warmer only makes sense with somewhere to write and a key to fetch with
	var mgr *ingestion.Manager
	if cfg.Warmer.Enabled && db != nil && cfg.NASA.APIKey != "" {
		mgr = ingestion.NewManager(cfg, svc, db, collector)
		mgr.Start(gctx)
	}

	grpcServer := internalgrpc.NewServer(svc, store, gen, grpc.UnaryInterceptor(collector.UnaryServerInterceptor()))

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(svc, gen, collector.Handler())
	router := api.NewRouter(handler, store, api.RouterOptions{
		RateLimitRPS: cfg.RateLimit.RPS,
		Logger:       slog.Default(),
		Recorder:     collector,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		if err := grpcServer.Start(fmt.Sprintf(":%d", cfg.GRPC.Port)); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		gen.Close() // ends SSE and gRPC metric streams
		grpcServer.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
	}

	if mgr != nil {
		mgr.Stop()
	}

	slog.Info("shutdown complete")
}
