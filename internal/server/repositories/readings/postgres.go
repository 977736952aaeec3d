// Package readings provides the PostgreSQL-backed repository for the
// append-only telemetry time series.
package readings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/dbx"
	"github.com/vmaksimov/homesense/internal/server/models"
)

// PostgresRepository implements reading storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const readingColumns = `id, tenant_id, device_id, ts, energy_usage, voltage, current, power_factor, temperature, humidity, status`

// Create appends one reading and returns its assigned id. The tenant id
// on the reading must already come from a verified principal.
func (r *PostgresRepository) Create(ctx context.Context, reading *models.Reading) (int64, error) {
	query := `
		INSERT INTO readings (tenant_id, device_id, ts, energy_usage, voltage, current, power_factor, temperature, humidity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reading.TenantID, reading.DeviceID, reading.Timestamp, reading.EnergyUsage,
		reading.Voltage, reading.Current, reading.PowerFactor,
		reading.Temperature, reading.Humidity, reading.Status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reading: %w: %v", common.ErrorUnavailable, err)
	}
	return id, nil
}

// Select returns readings newest first. The tenant filter is always the
// first predicate; device and time bounds are appended only when set.
func (r *PostgresRepository) Select(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE tenant_id = $1`
	args := []any{tenantID}

	if filter.DeviceID != "" {
		args = append(args, filter.DeviceID)
		query += ` AND device_id = $` + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += ` AND ts >= $` + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += ` AND ts <= $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY ts DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select readings: %w: %v", common.ErrorUnavailable, err)
	}
	defer rows.Close()

	result := make([]*models.Reading, 0)
	for rows.Next() {
		var item models.Reading
		if err := rows.Scan(
			&item.ID, &item.TenantID, &item.DeviceID, &item.Timestamp, &item.EnergyUsage,
			&item.Voltage, &item.Current, &item.PowerFactor,
			&item.Temperature, &item.Humidity, &item.Status,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a reading only if it belongs to the tenant. Returns
// false when no matching row existed; deleting twice is safe.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID string, readingID int64) (bool, error) {
	query := `DELETE FROM readings WHERE id = $1 AND tenant_id = $2`
	res, err := r.db.ExecContext(ctx, query, readingID, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to delete reading: %w: %v", common.ErrorUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// Latest returns the single most recent reading for the device.
func (r *PostgresRepository) Latest(ctx context.Context, tenantID, deviceID string) (*models.Reading, error) {
	query := `SELECT ` + readingColumns + `
		FROM readings
		WHERE tenant_id = $1 AND device_id = $2
		ORDER BY ts DESC
		LIMIT 1`
	var item models.Reading
	err := r.db.QueryRowContext(ctx, query, tenantID, deviceID).Scan(
		&item.ID, &item.TenantID, &item.DeviceID, &item.Timestamp, &item.EnergyUsage,
		&item.Voltage, &item.Current, &item.PowerFactor,
		&item.Temperature, &item.Humidity, &item.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select latest reading: %w: %v", common.ErrorUnavailable, err)
	}
	return &item, nil
}

// AggregateSince pushes the window aggregation into SQL. COALESCE keeps
// the zero-sample case a plain zero row instead of NULLs.
func (r *PostgresRepository) AggregateSince(ctx context.Context, tenantID, deviceID string, since time.Time) (*models.EnergyStats, error) {
	query := `
		SELECT COALESCE(SUM(energy_usage), 0), COALESCE(MAX(energy_usage), 0), COUNT(*)
		FROM readings
		WHERE tenant_id = $1 AND device_id = $2 AND ts >= $3
	`
	var stats models.EnergyStats
	err := r.db.QueryRowContext(ctx, query, tenantID, deviceID, since).
		Scan(&stats.TotalEnergy, &stats.PeakEnergy, &stats.SampleCount)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate readings: %w: %v", common.ErrorUnavailable, err)
	}
	return &stats, nil
}

// CountSince counts readings with ts >= since for one device.
func (r *PostgresRepository) CountSince(ctx context.Context, tenantID, deviceID string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM readings WHERE tenant_id = $1 AND device_id = $2 AND ts >= $3`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID, deviceID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count recent readings: %w: %v", common.ErrorUnavailable, err)
	}
	return count, nil
}

// CountNonActive counts all-time readings whose status is not "active".
func (r *PostgresRepository) CountNonActive(ctx context.Context, tenantID, deviceID string) (int64, error) {
	query := `SELECT COUNT(*) FROM readings WHERE tenant_id = $1 AND device_id = $2 AND status != $3`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID, deviceID, models.ReadingStatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count error readings: %w: %v", common.ErrorUnavailable, err)
	}
	return count, nil
}
