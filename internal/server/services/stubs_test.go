package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/vmaksimov/homesense/internal/dbx"
	"github.com/vmaksimov/homesense/internal/server/models"
	"github.com/vmaksimov/homesense/internal/server/repositories/devices"
	"github.com/vmaksimov/homesense/internal/server/repositories/readings"
)

// stubReadingsRepo lets each test plug in just the calls it expects.
type stubReadingsRepo struct {
	createFn         func(ctx context.Context, reading *models.Reading) (int64, error)
	selectFn         func(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error)
	deleteFn         func(ctx context.Context, tenantID string, readingID int64) (bool, error)
	latestFn         func(ctx context.Context, tenantID, deviceID string) (*models.Reading, error)
	aggregateFn      func(ctx context.Context, tenantID, deviceID string, since time.Time) (*models.EnergyStats, error)
	countSinceFn     func(ctx context.Context, tenantID, deviceID string, since time.Time) (int64, error)
	countNonActiveFn func(ctx context.Context, tenantID, deviceID string) (int64, error)
}

func (s *stubReadingsRepo) Create(ctx context.Context, reading *models.Reading) (int64, error) {
	return s.createFn(ctx, reading)
}

func (s *stubReadingsRepo) Select(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error) {
	return s.selectFn(ctx, tenantID, filter)
}

func (s *stubReadingsRepo) Delete(ctx context.Context, tenantID string, readingID int64) (bool, error) {
	return s.deleteFn(ctx, tenantID, readingID)
}

func (s *stubReadingsRepo) Latest(ctx context.Context, tenantID, deviceID string) (*models.Reading, error) {
	return s.latestFn(ctx, tenantID, deviceID)
}

func (s *stubReadingsRepo) AggregateSince(ctx context.Context, tenantID, deviceID string, since time.Time) (*models.EnergyStats, error) {
	return s.aggregateFn(ctx, tenantID, deviceID, since)
}

func (s *stubReadingsRepo) CountSince(ctx context.Context, tenantID, deviceID string, since time.Time) (int64, error) {
	return s.countSinceFn(ctx, tenantID, deviceID, since)
}

func (s *stubReadingsRepo) CountNonActive(ctx context.Context, tenantID, deviceID string) (int64, error) {
	return s.countNonActiveFn(ctx, tenantID, deviceID)
}

type stubDevicesRepo struct {
	createFn    func(ctx context.Context, device *models.Device) (*models.Device, error)
	listFn      func(ctx context.Context, tenantID string) ([]*models.Device, error)
	summarizeFn func(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error)
}

func (s *stubDevicesRepo) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	return s.createFn(ctx, device)
}

func (s *stubDevicesRepo) List(ctx context.Context, tenantID string) ([]*models.Device, error) {
	return s.listFn(ctx, tenantID)
}

func (s *stubDevicesRepo) Summarize(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error) {
	return s.summarizeFn(ctx, tenantID)
}

// stubRepoManager hands out the stub repos regardless of the DBTX.
type stubRepoManager struct {
	readings readings.Repository
	devices  devices.Repository
}

func (m *stubRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *stubRepoManager) Devices(dbx.DBTX) devices.Repository { return m.devices }

func (m *stubRepoManager) Readings(dbx.DBTX) readings.Repository { return m.readings }

// fixedClock pins timeNow for the duration of one test.
func fixedClock(t interface{ Cleanup(func()) }, now time.Time) {
	orig := timeNow
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = orig })
}
