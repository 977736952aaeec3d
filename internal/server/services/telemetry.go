package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/dbx"
	sc "github.com/vmaksimov/homesense/internal/server/config"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"
)

type TelemetryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewTelemetryService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config) *TelemetryService {
	return &TelemetryService{db: db, repomanager: m, config: config}
}

// Append ingests one reading for the tenant. The reading's TenantID is
// overwritten with the verified tenant id unconditionally; whatever a
// client put there never reaches the store. Ingestion does not require
// the device to be registered.
func (s *TelemetryService) Append(ctx context.Context, tenantID string, reading *models.Reading) (int64, error) {

	if strings.TrimSpace(reading.DeviceID) == "" {
		return 0, fmt.Errorf("%w: device_id is required", common.ErrorInvalidArgument)
	}
	if reading.EnergyUsage < 0 {
		return 0, fmt.Errorf("%w: energy_usage must not be negative", common.ErrorInvalidArgument)
	}

	reading.TenantID = tenantID
	if reading.Timestamp.IsZero() {
		reading.Timestamp = timeNow()
	}
	if reading.Status == "" {
		reading.Status = models.ReadingStatusActive
	}

	repo := s.repomanager.Readings(s.db)
	return repo.Create(ctx, reading)
}

// Query returns the tenant's readings newest first. The limit is clamped
// server-side; callers cannot disable it.
func (s *TelemetryService) Query(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error) {

	if filter.Limit <= 0 {
		filter.Limit = s.config.QueryLimitDefault
	}
	if filter.Limit > s.config.QueryLimitMax {
		filter.Limit = s.config.QueryLimitMax
	}

	repo := s.repomanager.Readings(s.db)
	return repo.Select(ctx, tenantID, filter)
}

// DeleteOne removes a reading if it belongs to the tenant. Returns false
// without error when no matching reading existed, so repeating a delete
// is always safe. The delete runs in a transaction so the ownership check
// and the removal see the same row.
func (s *TelemetryService) DeleteOne(ctx context.Context, tenantID string, readingID int64) (bool, error) {
	var deleted bool

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		deleted, err = s.repomanager.Readings(tx).Delete(ctx, tenantID, readingID)
		return err
	})
	if err != nil {
		return false, err
	}

	return deleted, nil
}
