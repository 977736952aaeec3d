// Package httpapi exposes the telemetry core over REST. Handlers stay
// thin: decode, call a service, encode. Tenant scoping happens in the
// auth middleware; handlers only ever see a verified principal.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/vmaksimov/homesense/internal/logging"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/services"
)

// Service surfaces the handlers depend on. Kept per concern so tests
// can stub one without the rest.
type TelemetryService interface {
	Append(ctx context.Context, tenantID string, reading *models.Reading) (int64, error)
	Query(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error)
	DeleteOne(ctx context.Context, tenantID string, readingID int64) (bool, error)
}

type DeviceService interface {
	Register(ctx context.Context, tenantID, deviceID, name, deviceType, location string) (*models.Device, error)
	List(ctx context.Context, tenantID string) ([]*models.Device, error)
	Summarize(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error)
}

type AnalyticsService interface {
	Analyze(ctx context.Context, tenantID, deviceID, period string) (*models.AnalyticsResult, error)
}

type HealthService interface {
	Evaluate(ctx context.Context, tenantID, deviceID string) (*models.HealthReport, error)
}

type ExportService interface {
	Export(ctx context.Context, tenantID string, filter models.ReadingFilter) (*services.ExportResult, error)
}

type HTTPServer struct {
	address        string
	logger         logging.Logger
	jwtSecret      []byte
	requestTimeout time.Duration

	telemetry TelemetryService
	devices   DeviceService
	analytics AnalyticsService
	health    HealthService
	export    ExportService
}

func NewHTTPServer(a string, l logging.Logger, secretKey string, requestTimeout time.Duration,
	ts TelemetryService, ds DeviceService, as AnalyticsService, hs HealthService, es ExportService) (*HTTPServer, error) {
	return &HTTPServer{
		address:        a,
		logger:         l.With("module", "http_server"),
		jwtSecret:      []byte(secretKey),
		requestTimeout: requestTimeout,
		telemetry:      ts,
		devices:        ds,
		analytics:      as,
		health:         hs,
		export:         es,
	}, nil
}

// router wires every route. The liveness probe sits outside the
// authenticated subrouter so it needs no token.
func (s *HTTPServer) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleLiveness).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.withDeadline, s.withAuth, s.withRolePolicy)

	api.HandleFunc("/telemetry/devices/summary", s.handleDeviceSummary).Methods(http.MethodGet)
	api.HandleFunc("/telemetry/export", s.handleExport).Methods(http.MethodPost)
	api.HandleFunc("/telemetry/{deviceId}/analytics", s.handleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/telemetry/{deviceId}/health", s.handleDeviceHealth).Methods(http.MethodGet)
	api.HandleFunc("/telemetry/{readingId}", s.handleDeleteReading).Methods(http.MethodDelete)
	api.HandleFunc("/telemetry", s.handleAppendReading).Methods(http.MethodPost)
	api.HandleFunc("/telemetry", s.handleQueryReadings).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.handleRegisterDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices", s.handleListDevices).Methods(http.MethodGet)

	return r
}

func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: handlers.LoggingHandler(os.Stdout, s.router()),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
