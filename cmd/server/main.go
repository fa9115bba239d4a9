package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/davharte/docbridge/internal/adapter"
	"github.com/davharte/docbridge/internal/api"
	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/chunk"
	"github.com/davharte/docbridge/internal/config"
	"github.com/davharte/docbridge/internal/orchestrator"
	"github.com/davharte/docbridge/internal/store"
)

func main() {
	godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	policy := backend.RetryPolicy{
		MaxAttempts:   cfg.RetryMaxAttempts,
		TotalDeadline: cfg.RetryDeadline,
		InitialDelay:  cfg.RetryInitialDelay,
		Multiplier:    cfg.RetryMultiplier,
		MaxDelay:      cfg.RetryMaxDelay,
	}

	registry := adapter.NewRegistry()
	orch := orchestrator.New(registry, log)
	for _, engine := range []backend.Engine{
		backend.MarkdownEngine{},
		backend.NewHTMLEngine(),
		backend.PDFEngine{},
		backend.DocxEngine{},
		backend.XLSXEngine{},
		backend.PlaintextEngine{},
	} {
		orch.RegisterClient(backend.NewClient(engine, policy, log))
	}
	if cfg.RemoteParserURL != "" {
		remote := backend.NewRemoteEngine(backend.EngineRemote, cfg.RemoteParserURL, cfg.RemoteParserAPIKey, cfg.RetryDeadline)
		orch.RegisterClient(backend.NewClient(remote, policy, log))
		registry.Register(backend.EngineRemote, adapter.RemoteAdapter{Name: backend.EngineRemote})
	}

	svc := orchestrator.NewService(orch, db, orchestrator.ServiceConfig{
		Workers:      cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
		Snapshot: orchestrator.Snapshot{
			Backends:    cfg.Backends,
			UseSemantic: cfg.UseSemantic,
			Chunk: chunk.Options{
				ChunkTokenNum:  cfg.ChunkTokenNum,
				OverlapPercent: cfg.OverlapPercent,
			},
		},
	}, log)
	svc.Start(ctx)

	srv := api.NewServer(svc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before closing the job queue, so no
		// in-flight handler submits to a closed channel.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		svc.Stop()
	}()

	log.Info("starting docbridge", "port", cfg.Port, "backends", cfg.Backends)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
