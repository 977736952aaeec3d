package devices

import (
	"context"

	"github.com/vmaksimov/homesense/internal/server/models"
)

// Repository is the tenant-scoped device catalog. Every method takes the
// tenant id explicitly; implementations must apply it to every statement.
type Repository interface {
	Create(ctx context.Context, device *models.Device) (*models.Device, error)
	List(ctx context.Context, tenantID string) ([]*models.Device, error)
	Summarize(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error)
}
