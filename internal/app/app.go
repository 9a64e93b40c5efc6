package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aliuyar1234/taskboard/internal/config"
	"github.com/aliuyar1234/taskboard/internal/db"
	"github.com/aliuyar1234/taskboard/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// App holds the application state
type App struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQL     *sql.DB
	Metrics *metrics.Metrics
	Router  http.Handler

	server *http.Server
}

// New creates and initializes a new application instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	setupLogger(cfg.LogLevel, cfg.IsDev())

	log.Info().Msg("Initializing taskboard")
	log.Info().Interface("config", cfg.RedactedValues()).Msg("Configuration loaded")

	log.Info().Msg("Connecting to database...")
	pool, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info().Msg("Database connection established")

	if cfg.IsDev() {
		log.Info().Msg("Development mode: running migrations automatically")
		applied, err := db.RunMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Strs("applied", applied).Msg("Migrations up to date")
	} else {
		log.Info().Msg("Production mode: migrations must be run manually")
	}

	sqlDB := db.OpenSQL(pool)

	m := metrics.New()
	m.RegisterPool(pool)

	app := &App{
		Config:  cfg,
		DB:      pool,
		SQL:     sqlDB,
		Metrics: m,
		Router:  NewRouter(cfg, sqlDB, m),
	}

	log.Info().Msg("Application initialized successfully")
	return app, nil
}

// Start starts the HTTP server and blocks until it stops
func (a *App) Start() error {
	addr := a.Config.HTTPAddr
	log.Info().Str("addr", addr).Msg("Starting HTTP server")

	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests, drains in-flight ones and closes the pool
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.server != nil {
		log.Info().Msg("Stopping HTTP server")
		err = a.server.Shutdown(ctx)
	}
	a.Close()
	return err
}

// Close releases the database handles
func (a *App) Close() {
	log.Info().Msg("Shutting down application")
	if a.SQL != nil {
		_ = a.SQL.Close()
	}
	if a.DB != nil {
		log.Info().Msg("Closing database connection")
		db.Close(a.DB)
	}
}

// setupLogger configures the global logger. Development gets console output,
// production gets JSON lines.
func setupLogger(level string, dev bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logger configured")
}
