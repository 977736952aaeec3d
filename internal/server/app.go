// Package server initializes and runs the telemetry server: it loads
// configuration, opens the database and runs migrations, wires the
// services, and starts the HTTP endpoint plus the optional queue
// consumer, shutting everything down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/vmaksimov/homesense/internal/logging"
	"github.com/vmaksimov/homesense/internal/server/config"
	"github.com/vmaksimov/homesense/internal/server/httpapi"
	"github.com/vmaksimov/homesense/internal/server/mq"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"
	"github.com/vmaksimov/homesense/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	telemetry *services.TelemetryService
	devices   *services.DeviceService
	analytics *services.AnalyticsService
	health    *services.HealthService
	export    *services.ExportService
}

func NewApp(c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository manager init error: %w", err)
	}

	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		telemetry: services.NewTelemetryService(db, m, c),
		devices:   services.NewDeviceService(db, m),
		analytics: services.NewAnalyticsService(db, m),
		health:    services.NewHealthService(db, m),
		export:    services.NewExportService(db, m, c),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.config.SecretKey,
		app.config.RequestTimeout, app.telemetry, app.devices, app.analytics, app.health, app.export)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
		return
	}

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startConsumer(ctx context.Context, cancelFunc context.CancelFunc) {

	c := mq.NewConsumer(app.config.AMQPURL, app.config.AMQPQueue, app.logger, app.telemetry)

	if err := c.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.AMQPURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startConsumer(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
}
