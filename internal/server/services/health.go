package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"
)

// Scoring policy. The uptime model assumes one reading per hour; a
// device reporting more often is clamped at 100%, not rewarded.
const (
	expectedReadingsPerDay = 24
	uptimeThreshold        = 80.0
	errorCountThreshold    = 5
	temperatureThreshold   = 70.0
)

// Advisory texts, appended in a fixed order. Each rule is independent;
// none suppresses another.
const (
	adviceConnectivity = "Device connectivity issues detected. Check network connection."
	adviceMaintenance  = "Multiple errors detected. Device may require maintenance."
	adviceVentilation  = "High temperature detected. Check device ventilation."
)

type HealthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewHealthService(db *sql.DB, m repomanager.RepositoryManager) *HealthService {
	return &HealthService{db: db, repomanager: m}
}

// Evaluate derives a health report for one device from current store
// contents. Nothing is cached; every call recomputes from scratch. The
// three store reads are not transactional, which can mix counts from
// slightly different instants; every field is a point read or a
// monotonically growing count, so the report stays self-consistent
// enough for its purpose.
func (s *HealthService) Evaluate(ctx context.Context, tenantID, deviceID string) (*models.HealthReport, error) {

	repo := s.repomanager.Readings(s.db)

	latest, err := repo.Latest(ctx, tenantID, deviceID)
	if err != nil {
		return nil, err
	}

	dayAgo := timeNow().Add(-24 * time.Hour)
	recentCount, err := repo.CountSince(ctx, tenantID, deviceID, dayAgo)
	if err != nil {
		return nil, err
	}

	errorCount, err := repo.CountNonActive(ctx, tenantID, deviceID)
	if err != nil {
		return nil, err
	}

	uptime := float64(recentCount) / expectedReadingsPerDay * 100
	if uptime > 100 {
		uptime = 100
	}

	recommendations := make([]string, 0)
	if uptime < uptimeThreshold {
		recommendations = append(recommendations, adviceConnectivity)
	}
	if errorCount > errorCountThreshold {
		recommendations = append(recommendations, adviceMaintenance)
	}
	if latest.Temperature != nil && *latest.Temperature > temperatureThreshold {
		recommendations = append(recommendations, adviceVentilation)
	}

	return &models.HealthReport{
		DeviceID:         deviceID,
		Status:           latest.Status,
		LastSeen:         latest.Timestamp,
		UptimePercentage: uptime,
		ErrorCount:       errorCount,
		MaintenanceDue:   errorCount > errorCountThreshold || uptime < uptimeThreshold,
		Recommendations:  recommendations,
	}, nil
}
