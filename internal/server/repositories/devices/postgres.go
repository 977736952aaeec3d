// Package devices provides the PostgreSQL-backed repository for the
// per-tenant device registry.
package devices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/dbx"
	"github.com/vmaksimov/homesense/internal/server/models"
)

// PostgresRepository implements device storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const pgUniqueViolation = "23505"

// Create registers a device for its tenant. A duplicate (tenant_id,
// device_id) pair returns common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	query := `
		INSERT INTO devices (tenant_id, device_id, device_name, device_type, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		device.TenantID, device.DeviceID, device.Name, device.Type, device.Location).
		Scan(&device.ID, &device.IsActive, &device.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert device: %w: %v", common.ErrorUnavailable, err)
	}
	return device, nil
}

// List returns the tenant's devices ordered by creation time, newest
// first. A tenant with no devices gets an empty slice, not an error.
func (r *PostgresRepository) List(ctx context.Context, tenantID string) ([]*models.Device, error) {
	query := `
		SELECT id, tenant_id, device_id, device_name, device_type, location, is_active, created_at
		FROM devices
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to select devices: %w: %v", common.ErrorUnavailable, err)
	}
	defer rows.Close()

	result := make([]*models.Device, 0)
	for rows.Next() {
		var item models.Device
		if err := rows.Scan(
			&item.ID, &item.TenantID, &item.DeviceID, &item.Name, &item.Type,
			&item.Location, &item.IsActive, &item.CreatedAt,
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

// Summarize left-joins every tenant device with its most recent reading.
// Both sides of the join are filtered by tenant id so a reading ingested
// under another tenant for the same device id never shows up.
func (r *PostgresRepository) Summarize(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error) {
	query := `
		SELECT d.id, d.tenant_id, d.device_id, d.device_name, d.device_type, d.location,
		       d.is_active, d.created_at, t.energy_usage, t.ts, t.status
		FROM devices d
		LEFT JOIN (
			SELECT device_id, energy_usage, ts, status,
			       ROW_NUMBER() OVER (PARTITION BY device_id ORDER BY ts DESC) AS rn
			FROM readings
			WHERE tenant_id = $1
		) t ON d.device_id = t.device_id AND t.rn = 1
		WHERE d.tenant_id = $1
		ORDER BY d.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize devices: %w: %v", common.ErrorUnavailable, err)
	}
	defer rows.Close()

	result := make([]*models.DeviceSummary, 0)
	for rows.Next() {
		var item models.DeviceSummary
		var status *string
		if err := rows.Scan(
			&item.ID, &item.TenantID, &item.DeviceID, &item.Name, &item.Type,
			&item.Location, &item.IsActive, &item.CreatedAt,
			&item.LatestEnergyUsage, &item.LastUpdate, &status,
		); err != nil {
			return nil, err
		}
		if status != nil {
			item.Status = *status
		} else {
			item.Status = "unknown"
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
