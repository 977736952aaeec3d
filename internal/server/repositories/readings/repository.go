package readings

import (
	"context"
	"time"

	"github.com/vmaksimov/homesense/internal/server/models"
)

// Repository is the append-only, tenant-scoped telemetry store. Readings
// are immutable once written; the only mutation is the tenant-scoped
// idempotent delete.
type Repository interface {
	Create(ctx context.Context, reading *models.Reading) (int64, error)
	Select(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error)
	Delete(ctx context.Context, tenantID string, readingID int64) (bool, error)

	// Latest returns the most recent reading for a device, or
	// common.ErrorNotFound when the device has none.
	Latest(ctx context.Context, tenantID, deviceID string) (*models.Reading, error)

	// AggregateSince computes SUM/MAX/COUNT of energy_usage for readings
	// with ts >= since. A window with no samples yields SampleCount 0,
	// not an error; the caller decides what that means.
	AggregateSince(ctx context.Context, tenantID, deviceID string, since time.Time) (*models.EnergyStats, error)

	CountSince(ctx context.Context, tenantID, deviceID string, since time.Time) (int64, error)
	CountNonActive(ctx context.Context, tenantID, deviceID string) (int64, error)
}
