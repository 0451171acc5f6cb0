package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/httpapi"
	"github.com/MimeLyc/doc-translator/internal/jobs"
	"github.com/MimeLyc/doc-translator/internal/service"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type backupScheduler interface {
	Schedule(ctx context.Context, expr string) error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, job workers and scheduled backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("Config: %s", cfg)

	settings, err := config.NewRuntimeSettingsStore(cfg.System.SettingsFile, cfg.RuntimeSettings())
	if err != nil {
		return err
	}

	cronEngine := cron.New()
	var backups *service.BackupScheduler
	svc, store, err := openService(cfg,
		service.WithSettingsStore(settings),
		service.OnSettingsChange(func(rs config.RuntimeSettings) {
			if err := backups.Schedule(ctx, rs.BackupCron); err != nil {
				log.Error("Failed to reschedule backups: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close store: %v", err)
		}
	}()
	backups = service.NewBackupScheduler(svc, cronEngine, cfg.Backup.Dir, cfg.Backup.Format, cfg.Backup.Keep)

	queue := jobs.NewQueue(cfg.System.JobWorkers, store)
	queue.Start(svc.ExecuteJob)
	defer queue.Stop()

	srv := httpapi.NewServer(svc, queue, httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIEnabled))
	return runWithComponents(ctx, cfg, backups, cronEngine, srv)
}

// runWithComponents schedules backups, starts cron and serves HTTP until ctx
// is cancelled or the server fails.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	scheduler backupScheduler,
	cronEngine cronRunner,
	httpSrv httpServer,
) error {
	if err := scheduler.Schedule(ctx, cfg.Backup.CronExpr); err != nil {
		return err
	}
	cronEngine.Start()
	defer func() {
		select {
		case <-cronEngine.Stop().Done():
		case <-time.After(shutdownTimeout):
			log.Warn("Timed out waiting for running cron jobs")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
