package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feliperosa/trainvault/internal/admin"
	"github.com/feliperosa/trainvault/internal/config"
	"github.com/feliperosa/trainvault/internal/httpapi"
	"github.com/feliperosa/trainvault/internal/lifecycle"
	"github.com/feliperosa/trainvault/internal/model"
	"github.com/feliperosa/trainvault/internal/observability"
	"github.com/feliperosa/trainvault/internal/reconcile"
	"github.com/feliperosa/trainvault/internal/session"
	"github.com/feliperosa/trainvault/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	backend, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer backend.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("store: in-memory (no DATABASE_URL configured)")
	} else {
		log.Printf("store: postgres")
	}

	handle, err := model.NewHandle(model.Config{
		Mode:    cfg.ModelMode,
		HTTPURL: cfg.ModelHTTPURL,
		APIKey:  cfg.ModelAPIKey,
	})
	if err != nil {
		log.Fatalf("model handle init failed: %v", err)
	}

	engine := reconcile.NewEngine(backend, handle)
	controller := lifecycle.NewController(engine, backend, handle, metrics)

	events := httpapi.NewEventHub()
	controller.SetEventHook(events.Publish)

	sessions := session.NewManager(cfg.SessionInactivityTimeout, controller)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	adminSvc := admin.NewService(backend, handle, cfg.BackupDir)

	api := httpapi.New(cfg, sessions, controller, adminSvc, metrics, events)
	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
