// Package services contains the application services sitting between the
// transport layer and the repositories. Tenant ids always arrive as
// explicit arguments taken from a verified principal upstream.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/repomanager"
)

// timeNow is a seam for tests that need a fixed clock.
var timeNow = time.Now

const (
	defaultDeviceName     = "Unknown Device"
	defaultDeviceType     = "Smart Device"
	defaultDeviceLocation = "Unknown Location"
)

type DeviceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDeviceService(db *sql.DB, m repomanager.RepositoryManager) *DeviceService {
	return &DeviceService{db: db, repomanager: m}
}

// Register creates a device owned by the tenant. Missing descriptive
// fields fall back to the same defaults the ingestion fleet uses.
// A duplicate device id within the tenant fails with ErrorAlreadyExists.
func (s *DeviceService) Register(ctx context.Context, tenantID, deviceID, name, deviceType, location string) (*models.Device, error) {

	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("%w: device_id is required", common.ErrorInvalidArgument)
	}
	if name == "" {
		name = defaultDeviceName
	}
	if deviceType == "" {
		deviceType = defaultDeviceType
	}
	if location == "" {
		location = defaultDeviceLocation
	}

	repo := s.repomanager.Devices(s.db)

	device, err := repo.Create(ctx, &models.Device{
		TenantID: tenantID,
		DeviceID: deviceID,
		Name:     name,
		Type:     deviceType,
		Location: location,
	})
	if err != nil {
		return nil, err
	}

	return device, nil
}

// List returns the tenant's devices, newest registration first.
func (s *DeviceService) List(ctx context.Context, tenantID string) ([]*models.Device, error) {
	repo := s.repomanager.Devices(s.db)
	return repo.List(ctx, tenantID)
}

// Summarize joins every tenant device with its latest reading.
func (s *DeviceService) Summarize(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error) {
	repo := s.repomanager.Devices(s.db)
	return repo.Summarize(ctx, tenantID)
}
