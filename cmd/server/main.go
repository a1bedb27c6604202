// @title           Prompt Image Studio API
// @version         1.0.0
// @description     Conversational AI image editing. Uploads images, submits prompt-driven edits to OpenRouter
// @description     and exposes job status for polling or server-sent events.

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"prompt-image-studio/internal/config"
	"prompt-image-studio/internal/database"
	"prompt-image-studio/internal/events"
	"prompt-image-studio/internal/gcs"
	"prompt-image-studio/internal/handlers"
	"prompt-image-studio/internal/imagestore"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/openrouter"
	"prompt-image-studio/internal/services"
	"prompt-image-studio/internal/store"
	"prompt-image-studio/internal/supabase"
	"prompt-image-studio/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server exited with error", "error", err)
	}
	log.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Store
	var (
		st     store.Store
		pinger handlers.Pinger
	)
	if cfg.DatabaseURL != "" {
		dbClient, err := database.NewDatabaseClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer dbClient.Close()

		if err := database.NewMigrator(dbClient.DB(), log).Run(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		st, pinger = dbClient, dbClient
		log.Info("Using PostgreSQL store")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		st = store.NewMemory()
	}

	// Image storage
	images, closeImages, err := newImageStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeImages()

	// Job events
	hub := events.NewHub()
	var publishers events.Multi
	if cfg.RedisAddr != "" {
		bus, err := events.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			return err
		}
		defer bus.Close()
		// the forwarder feeds the hub, including events this instance published
		if err := bus.StartForwarder(ctx, hub.Deliver); err != nil {
			return err
		}
		publishers = append(publishers, bus)
	} else {
		publishers = append(publishers, hub)
	}
	if cfg.SupabaseRealtimeTable != "" {
		sb, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			return err
		}
		publishers = append(publishers, supabase.NewRealtimeClient(sb.Supabase, cfg.SupabaseRealtimeTable))
	}

	// Services
	processor := newProcessor(cfg, images, log)

	executor := worker.NewExecutor(log)
	configs := services.NewModelConfigService(st, cfg.DefaultModel, cfg.OpenRouterAPIKey)
	processing := services.NewProcessingService(st, processor, executor, publishers, configs, log)

	if n, err := processing.ReconcileStale(ctx, cfg.StaleJobAfter); err != nil {
		log.Warn("Failed to reconcile stale jobs", "error", err)
	} else if n > 0 {
		log.Info("Marked interrupted jobs as failed", "count", n)
	}

	router := handlers.NewRouter(cfg, log, handlers.Handlers{
		Process:       handlers.NewProcessHandler(processing),
		Jobs:          handlers.NewJobHandler(processing, hub),
		Conversations: handlers.NewConversationHandler(services.NewConversationService(st)),
		Uploads:       handlers.NewUploadHandler(services.NewUploadService(images, configs, log)),
		ModelConfig:   handlers.NewModelConfigHandler(configs),
		Library:       handlers.NewLibraryHandler(services.NewLibraryService(st)),
		Health:        handlers.NewHealthHandler(pinger, executor.InFlight, hub.Subscribers),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down", "grace", cfg.ShutdownGrace)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown incomplete", "error", err)
		}
		if err := executor.Shutdown(shutdownCtx); err != nil {
			log.Warn("Processing jobs cancelled at shutdown", "in_flight", executor.InFlight(), "error", err)
		}
		return nil
	})

	return g.Wait()
}

// newProcessor builds the OpenRouter client. BASE_URL is only the attribution
// header; without PUBLIC_BASE_URL stored images are sent inline as data URLs.
func newProcessor(cfg *config.Config, images imagestore.ImageStore, log *logger.Logger) *openrouter.Client {
	return openrouter.NewClient(openrouter.Options{
		BaseURL:       cfg.OpenRouterBaseURL,
		APIKey:        cfg.OpenRouterAPIKey,
		PublicBaseURL: cfg.PublicBaseURL,
		AppURL:        cfg.BaseURL,
		AppTitle:      "Prompt Image Studio",
	}, images, log)
}

func newImageStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (imagestore.ImageStore, func(), error) {
	switch cfg.ImageStore {
	case "supabase":
		log.Info("Using Supabase image storage", "bucket", cfg.SupabaseStorageBucket, "public", cfg.SupabaseStoragePublic)
		return supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket, cfg.SupabaseStoragePublic), func() {}, nil
	case "gcs":
		gcsStore, err := gcs.NewStore(ctx, log, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using GCS image storage", "bucket", cfg.GCSBucket)
		return gcsStore, func() { _ = gcsStore.Close() }, nil
	default:
		local, err := imagestore.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to prepare upload directory: %w", err)
		}
		log.Info("Using local image storage", "dir", cfg.UploadDir)
		return local, func() {}, nil
	}
}
