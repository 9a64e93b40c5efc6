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

	"github.com/aliuyar1234/taskboard/internal/app"
	"github.com/aliuyar1234/taskboard/internal/config"
	"github.com/aliuyar1234/taskboard/internal/retention"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	retentionScheduleProd = "0 3 * * *"
	retentionScheduleDev  = "*/10 * * * *"
	retentionTimeout      = 5 * time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		os.Exit(runAdmin(os.Args[2:]))
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	scheduler, err := scheduleRetention(cfg, application)
	if err != nil {
		application.Close()
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- application.Start() }()

	select {
	case err := <-serveErr:
		application.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return application.Shutdown(shutdownCtx)
}

// scheduleRetention registers the nightly audit purge. Dev runs it more often
// so the job is visible while working locally.
func scheduleRetention(cfg *config.Config, application *app.App) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	schedule := retentionScheduleProd
	if cfg.IsDev() {
		schedule = retentionScheduleDev
	}

	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), retentionTimeout)
		defer cancel()
		if err := retention.RunRetentionJob(ctx, application.SQL, cfg.AuditRetentionDays, application.Metrics); err != nil {
			log.Error().Err(err).Msg("Retention job failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule retention job: %w", err)
	}
	return c, nil
}
