package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmaksimov/homesense/internal/common"
	sc "github.com/vmaksimov/homesense/internal/server/config"
	"github.com/vmaksimov/homesense/internal/server/models"
)

func telemetryService(repo *stubReadingsRepo) *TelemetryService {
	cfg := &sc.Config{QueryLimitDefault: 50, QueryLimitMax: 1000}
	return NewTelemetryService(nil, &stubRepoManager{readings: repo}, cfg)
}

func TestAppend_OverwritesTenantAndFillsDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fixedClock(t, now)

	var stored *models.Reading
	repo := &stubReadingsRepo{
		createFn: func(ctx context.Context, reading *models.Reading) (int64, error) {
			stored = reading
			return 42, nil
		},
	}
	svc := telemetryService(repo)

	id, err := svc.Append(context.Background(), "tenant-a", &models.Reading{
		TenantID:    "tenant-b", // forged by the client
		DeviceID:    "d1",
		EnergyUsage: 1.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	require.NotNil(t, stored)
	assert.Equal(t, "tenant-a", stored.TenantID)
	assert.Equal(t, now, stored.Timestamp)
	assert.Equal(t, models.ReadingStatusActive, stored.Status)
}

func TestAppend_KeepsExplicitTimestampAndStatus(t *testing.T) {
	ts := time.Date(2025, 5, 30, 8, 15, 0, 0, time.UTC)

	var stored *models.Reading
	repo := &stubReadingsRepo{
		createFn: func(ctx context.Context, reading *models.Reading) (int64, error) {
			stored = reading
			return 1, nil
		},
	}
	svc := telemetryService(repo)

	_, err := svc.Append(context.Background(), "t1", &models.Reading{
		DeviceID:    "d1",
		EnergyUsage: 2.0,
		Timestamp:   ts,
		Status:      "error",
	})
	require.NoError(t, err)
	assert.Equal(t, ts, stored.Timestamp)
	assert.Equal(t, "error", stored.Status)
}

func TestAppend_Validation(t *testing.T) {
	svc := telemetryService(&stubReadingsRepo{
		createFn: func(ctx context.Context, reading *models.Reading) (int64, error) {
			t.Fatal("invalid reading must not reach the store")
			return 0, nil
		},
	})

	tests := []struct {
		name    string
		reading *models.Reading
	}{
		{"missing device id", &models.Reading{EnergyUsage: 1.0}},
		{"blank device id", &models.Reading{DeviceID: "   ", EnergyUsage: 1.0}},
		{"negative energy", &models.Reading{DeviceID: "d1", EnergyUsage: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), "t1", tt.reading)
			assert.ErrorIs(t, err, common.ErrorInvalidArgument)
		})
	}
}

func TestQuery_ClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero uses default", 0, 50},
		{"negative uses default", -5, 50},
		{"within range passes through", 200, 200},
		{"above max is capped", 5000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got models.ReadingFilter
			svc := telemetryService(&stubReadingsRepo{
				selectFn: func(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error) {
					got = filter
					return nil, nil
				},
			})

			_, err := svc.Query(context.Background(), "t1", models.ReadingFilter{Limit: tt.requested})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Limit)
		})
	}
}

func TestQuery_PassesFilterThrough(t *testing.T) {
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var got models.ReadingFilter
	svc := telemetryService(&stubReadingsRepo{
		selectFn: func(ctx context.Context, tenantID string, filter models.ReadingFilter) ([]*models.Reading, error) {
			got = filter
			return nil, nil
		},
	})

	_, err := svc.Query(context.Background(), "t1", models.ReadingFilter{DeviceID: "d1", From: &from, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "d1", got.DeviceID)
	require.NotNil(t, got.From)
	assert.Equal(t, from, *got.From)
}

func deleteService(t *testing.T, repo *stubReadingsRepo) (*TelemetryService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &sc.Config{QueryLimitDefault: 50, QueryLimitMax: 1000}
	return NewTelemetryService(db, &stubRepoManager{readings: repo}, cfg), mock
}

func TestDeleteOne_ReportsWhetherAnythingWasRemoved(t *testing.T) {
	existing := map[int64]bool{7: true}
	svc, mock := deleteService(t, &stubReadingsRepo{
		deleteFn: func(ctx context.Context, tenantID string, readingID int64) (bool, error) {
			if existing[readingID] {
				delete(existing, readingID)
				return true, nil
			}
			return false, nil
		},
	})
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	deleted, err := svc.DeleteOne(context.Background(), "t1", 7)
	require.NoError(t, err)
	assert.True(t, deleted)

	// repeating the same delete is not an error
	deleted, err = svc.DeleteOne(context.Background(), "t1", 7)
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOne_RepositoryErrorRollsBack(t *testing.T) {
	svc, mock := deleteService(t, &stubReadingsRepo{
		deleteFn: func(ctx context.Context, tenantID string, readingID int64) (bool, error) {
			return false, errors.Join(common.ErrorUnavailable, errors.New("connection reset"))
		},
	})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.DeleteOne(context.Background(), "t1", 1)
	assert.ErrorIs(t, err, common.ErrorUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
