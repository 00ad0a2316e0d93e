package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/automation"
	"inbox-rpa/internal/config"
	"inbox-rpa/internal/extract"
	"inbox-rpa/internal/handlers"
	"inbox-rpa/internal/mailbox"
	"inbox-rpa/internal/maintenance"
	"inbox-rpa/internal/metrics"
	"inbox-rpa/internal/report"
	"inbox-rpa/internal/scheduler"
	"inbox-rpa/internal/server"
	"inbox-rpa/internal/store"
	"inbox-rpa/internal/triage"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting inbox RPA service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	st := store.NewOutcomeStore(cfg.Database.Path, cfg.Report.ExportPath)
	if err := st.Init(); err != nil {
		return fmt.Errorf("failed to initialize outcome store: %w", err)
	}

	extractor, err := extract.NewExtractor(cfg.Triage.LinkPath, cfg.Triage.LinkPattern)
	if err != nil {
		return fmt.Errorf("invalid link pattern: %w", err)
	}

	m := metrics.NewMetrics()
	provider := mailbox.NewIMAPProvider(cfg.IMAP)
	executor := automation.NewExecutor(cfg.Automation)
	dispatcher := report.NewSMTPDispatcher(cfg.SMTP)

	orch := triage.NewOrchestrator(provider, extractor, executor, st, dispatcher, m, cfg.Triage.SenderFilter)
	maint := maintenance.NewScheduler(cfg.Maintenance, st, executor)
	sched := scheduler.NewScheduler(&cfg.Scheduler, orch, maint)

	if cfg.Scheduler.RunOnce {
		sched.RunOnce()
		logrus.Info("Single-shot cycle finished")
		return nil
	}

	h := handlers.NewHandlers(st, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := provider.Close(); err != nil {
		logrus.Errorf("Failed to close mailbox provider: %v", err)
	}

	logrus.Info("Service stopped gracefully")
	return nil
}
