package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"
)

// Fixed tariff and emission factor applied to every tenant. These are
// deliberately not configurable: billing-accurate pricing belongs to a
// system that knows the tenant's utility contract, not here.
const (
	costPerKWh   = 0.12 // currency units per kWh
	carbonPerKWh = 0.92 // kg CO2 per kWh
)

// periodWindows maps an analytics period name onto its trailing window.
var periodWindows = map[string]time.Duration{
	"daily":   24 * time.Hour,
	"weekly":  7 * 24 * time.Hour,
	"monthly": 30 * 24 * time.Hour,
	"yearly":  365 * 24 * time.Hour,
}

type AnalyticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAnalyticsService(db *sql.DB, m repomanager.RepositoryManager) *AnalyticsService {
	return &AnalyticsService{db: db, repomanager: m}
}

// Analyze computes window statistics for one device of one tenant.
//
// An unrecognized period fails with ErrorInvalidArgument instead of
// silently falling back to some default window. A window that contains
// no samples fails with ErrorNotFound; a window whose samples all carry
// zero energy usage is a valid result with averages of zero.
func (s *AnalyticsService) Analyze(ctx context.Context, tenantID, deviceID, period string) (*models.AnalyticsResult, error) {

	window, ok := periodWindows[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown analytics period %q", common.ErrorInvalidArgument, period)
	}

	now := timeNow()
	windowStart := now.Add(-window)

	repo := s.repomanager.Readings(s.db)
	stats, err := repo.AggregateSince(ctx, tenantID, deviceID, windowStart)
	if err != nil {
		return nil, err
	}

	if stats.SampleCount == 0 {
		return nil, fmt.Errorf("%w: no telemetry for device %s in period %s", common.ErrorNotFound, deviceID, period)
	}

	return &models.AnalyticsResult{
		DeviceID:        deviceID,
		Period:          period,
		TotalEnergy:     stats.TotalEnergy,
		AverageEnergy:   stats.TotalEnergy / float64(stats.SampleCount),
		PeakEnergy:      stats.PeakEnergy,
		CostEstimate:    stats.TotalEnergy * costPerKWh,
		CarbonFootprint: stats.TotalEnergy * carbonPerKWh,
		SampleCount:     stats.SampleCount,
		WindowStart:     windowStart,
		WindowEnd:       now,
	}, nil
}
