package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/logging"
	"github.com/JonMunkholm/dados/internal/mail"
	"github.com/JonMunkholm/dados/internal/report"
	"github.com/JonMunkholm/dados/internal/service"
	"github.com/JonMunkholm/dados/internal/store"
	"github.com/JonMunkholm/dados/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"mail_enabled", cfg.Mail.Enabled(),
	)

	gate, err := access.FromConfig(cfg.Access)
	if err != nil {
		slog.Error("failed to load users", "error", err)
		os.Exit(1)
	}
	slog.Info("access gate ready", "identities", len(gate.Identities()))

	st := store.New(cfg.Database, cfg.Upload.BatchSize)

	// Connections are per operation, so an unreachable database is reported
	// but does not stop the server; /readyz reflects it.
	ctx := context.Background()
	if err := st.Ping(ctx); err != nil {
		slog.Warn("database not reachable at startup", "error", err)
	} else if err := st.EnsureSchema(ctx); err != nil {
		slog.Warn("failed to provision schema", "error", err)
	} else {
		slog.Info("connected to database", "name", cfg.Database.Name)
	}

	svc := service.New(st, mail.NewDispatcher(cfg.Mail), cfg)
	server := web.NewServer(svc, gate, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	var scheduler *report.Scheduler
	if cfg.Report.Enabled() {
		scheduler, err = report.NewScheduler(svc, cfg.Report, slog.Default())
		if err != nil {
			slog.Error("failed to create report scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start(jobCtx)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		cancelJobs()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for active ingestions and exports to complete (with timeout)
		status := svc.Status()
		if status.Ingest.Active > 0 || status.Export.Active > 0 {
			slog.Info("waiting for in-flight work",
				"ingestions", status.Ingest.Active,
				"exports", status.Export.Active,
			)
			if err := svc.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("in-flight work did not complete in time", "error", err)
			}
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
