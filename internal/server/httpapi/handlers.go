package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/server/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), "encoding response", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Client-caused
// failures carry the wrapped message; server-side ones get a fixed text
// so internal diagnostics never leak.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorInvalidArgument):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrorForbidden):
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorAlreadyExists):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorUnavailable), errors.Is(err, context.DeadlineExceeded):
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *HTTPServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// appendReadingRequest is the ingestion body. EnergyUsage is a pointer
// so an absent field is distinguishable from an explicit zero reading;
// it is the one required measurement.
type appendReadingRequest struct {
	DeviceID    string     `json:"device_id"`
	Timestamp   *time.Time `json:"timestamp"`
	EnergyUsage *float64   `json:"energy_usage"`
	Voltage     *float64   `json:"voltage"`
	Current     *float64   `json:"current"`
	PowerFactor *float64   `json:"power_factor"`
	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	Status      string     `json:"status"`
}

func (s *HTTPServer) handleAppendReading(w http.ResponseWriter, r *http.Request) {
	var req appendReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid json body", common.ErrorInvalidArgument))
		return
	}
	if req.EnergyUsage == nil {
		s.writeError(w, r, fmt.Errorf("%w: energy_usage is required", common.ErrorInvalidArgument))
		return
	}

	reading := models.Reading{
		DeviceID:    req.DeviceID,
		EnergyUsage: *req.EnergyUsage,
		Voltage:     req.Voltage,
		Current:     req.Current,
		PowerFactor: req.PowerFactor,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
		Status:      req.Status,
	}
	if req.Timestamp != nil {
		reading.Timestamp = *req.Timestamp
	}

	principal := principalFrom(r.Context())

	id, err := s.telemetry.Append(r.Context(), principal.Subject, &reading)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// readingFilterFromQuery parses the shared query parameters used by the
// telemetry listing and the export endpoint.
func readingFilterFromQuery(r *http.Request) (models.ReadingFilter, error) {
	q := r.URL.Query()

	filter := models.ReadingFilter{DeviceID: q.Get("deviceId")}

	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("%w: from must be RFC3339", common.ErrorInvalidArgument)
		}
		filter.From = &ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, fmt.Errorf("%w: to must be RFC3339", common.ErrorInvalidArgument)
		}
		filter.To = &ts
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: limit must be an integer", common.ErrorInvalidArgument)
		}
		filter.Limit = limit
	}

	return filter, nil
}

func (s *HTTPServer) handleQueryReadings(w http.ResponseWriter, r *http.Request) {
	filter, err := readingFilterFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	principal := principalFrom(r.Context())

	readings, err := s.telemetry.Query(r.Context(), principal.Subject, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if readings == nil {
		readings = []*models.Reading{}
	}

	s.writeJSON(w, http.StatusOK, readings)
}

func (s *HTTPServer) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	readingID, err := strconv.ParseInt(mux.Vars(r)["readingId"], 10, 64)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: reading id must be an integer", common.ErrorInvalidArgument))
		return
	}

	principal := principalFrom(r.Context())

	deleted, err := s.telemetry.DeleteOne(r.Context(), principal.Subject, readingID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// deleting a missing reading is still a success
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *HTTPServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	period := r.URL.Query().Get("period")

	principal := principalFrom(r.Context())

	result, err := s.analytics.Analyze(r.Context(), principal.Subject, deviceID, period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleDeviceHealth(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	principal := principalFrom(r.Context())

	report, err := s.health.Evaluate(r.Context(), principal.Subject, deviceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *HTTPServer) handleDeviceSummary(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	summaries, err := s.devices.Summarize(r.Context(), principal.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []*models.DeviceSummary{}
	}

	s.writeJSON(w, http.StatusOK, summaries)
}

type registerDeviceRequest struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"device_name"`
	Type     string `json:"device_type"`
	Location string `json:"location"`
}

func (s *HTTPServer) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid json body", common.ErrorInvalidArgument))
		return
	}

	principal := principalFrom(r.Context())

	device, err := s.devices.Register(r.Context(), principal.Subject, req.DeviceID, req.Name, req.Type, req.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, device)
}

func (s *HTTPServer) handleListDevices(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())

	devices, err := s.devices.List(r.Context(), principal.Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if devices == nil {
		devices = []*models.Device{}
	}

	s.writeJSON(w, http.StatusOK, devices)
}

type exportRequest struct {
	DeviceID string     `json:"device_id"`
	From     *time.Time `json:"from"`
	To       *time.Time `json:"to"`
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: invalid json body", common.ErrorInvalidArgument))
			return
		}
	}

	principal := principalFrom(r.Context())

	result, err := s.export.Export(r.Context(), principal.Subject, models.ReadingFilter{
		DeviceID: req.DeviceID,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, result)
}
