// Package main is the entry point for the eyemap server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eyemap-vis/server/internal/api"
	"github.com/eyemap-vis/server/internal/cache"
	"github.com/eyemap-vis/server/internal/config"
	"github.com/eyemap-vis/server/internal/data/columns"
	"github.com/eyemap-vis/server/internal/output"
	"github.com/eyemap-vis/server/internal/render"
	"github.com/eyemap-vis/server/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting eyemap server on port %d", cfg.Server.Port)

	// Initialize cache manager
	cacheManager, err := cache.NewManager(cache.Config{
		ArtifactCacheSizeMB: cfg.Cache.ArtifactSizeMB,
		ArtifactTTL:         time.Duration(cfg.Cache.ArtifactTTLMinutes) * time.Minute,
		ColumnsCacheSize:    cfg.Cache.ColumnsCacheSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	// Initialize renderer
	renderer, err := render.NewRenderer(render.Config{
		HexSize:       cfg.Render.HexSize,
		SpacingFactor: cfg.Render.SpacingFactor,
		Margin:        cfg.Render.Margin,
		Colormap:      cfg.Render.Colormap,
	})
	if err != nil {
		log.Fatalf("Failed to initialize renderer: %v", err)
	}

	// Initialize dataset reader
	reader, err := columns.NewReader(cfg.Data.DatasetPath)
	if err != nil {
		log.Fatalf("Failed to load dataset %q: %v", cfg.Data.DatasetPath, err)
	}
	defer reader.Close()

	md := reader.Metadata()
	log.Printf("Loaded dataset %q: %d region(s), %d lattice column(s)",
		md.DatasetName, len(md.Regions), len(reader.PossibleColumns()))

	// Initialize grid service
	writer := output.NewWriter(cfg.Output.Dir)
	gridService := service.NewGridService(service.GridServiceConfig{
		Renderer: renderer,
		Cache:    cacheManager,
		Writer:   writer,
	})

	// Initialize job manager for batch generation (SQLite persistence)
	jobManager, err := api.NewJobManager(api.JobManagerConfig{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		SQLitePath:    cfg.Jobs.SQLitePath,
		RetentionDays: cfg.Jobs.RetentionDays,
		CleanupPeriod: 1 * time.Hour,
	})
	if err != nil {
		log.Fatalf("Failed to initialize job manager: %v", err)
	}
	log.Printf("Job manager: max_concurrent=%d, retention_days=%d, sqlite=%s",
		cfg.Jobs.MaxConcurrent, cfg.Jobs.RetentionDays, cfg.Jobs.SQLitePath)

	// Wire up batch service as job executor
	batchService := service.NewBatchService(gridService, reader)
	jobManager.Executor = batchService.ExecuteGenerationJob

	jobManager.Start()
	defer jobManager.Stop()

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Service:     gridService,
		Reader:      reader,
		CORSOrigins: cfg.Server.CORSOrigins,
		JobManager:  jobManager,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
