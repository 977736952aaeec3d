package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmaksimov/homesense/internal/common"
	"github.com/vmaksimov/homesense/internal/server/models"
)

func TestRegister_AppliesDefaults(t *testing.T) {
	var stored *models.Device
	repo := &stubDevicesRepo{
		createFn: func(ctx context.Context, device *models.Device) (*models.Device, error) {
			stored = device
			return device, nil
		},
	}
	svc := NewDeviceService(nil, &stubRepoManager{devices: repo})

	device, err := svc.Register(context.Background(), "t1", "d1", "", "", "")
	require.NoError(t, err)

	assert.Equal(t, "t1", stored.TenantID)
	assert.Equal(t, "Unknown Device", device.Name)
	assert.Equal(t, "Smart Device", device.Type)
	assert.Equal(t, "Unknown Location", device.Location)
}

func TestRegister_KeepsProvidedFields(t *testing.T) {
	repo := &stubDevicesRepo{
		createFn: func(ctx context.Context, device *models.Device) (*models.Device, error) {
			return device, nil
		},
	}
	svc := NewDeviceService(nil, &stubRepoManager{devices: repo})

	device, err := svc.Register(context.Background(), "t1", "thermo-1", "Hall Thermostat", "thermostat", "Hallway")
	require.NoError(t, err)
	assert.Equal(t, "Hall Thermostat", device.Name)
	assert.Equal(t, "thermostat", device.Type)
	assert.Equal(t, "Hallway", device.Location)
}

func TestRegister_RequiresDeviceID(t *testing.T) {
	svc := NewDeviceService(nil, &stubRepoManager{devices: &stubDevicesRepo{
		createFn: func(ctx context.Context, device *models.Device) (*models.Device, error) {
			t.Fatal("device without id must not reach the store")
			return nil, nil
		},
	}})

	for _, id := range []string{"", "  "} {
		_, err := svc.Register(context.Background(), "t1", id, "n", "t", "l")
		assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	}
}

func TestRegister_DuplicatePropagatesConflict(t *testing.T) {
	svc := NewDeviceService(nil, &stubRepoManager{devices: &stubDevicesRepo{
		createFn: func(ctx context.Context, device *models.Device) (*models.Device, error) {
			return nil, common.ErrorAlreadyExists
		},
	}})

	_, err := svc.Register(context.Background(), "t1", "d1", "", "", "")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestListAndSummarize_DelegatePerTenant(t *testing.T) {
	devicesByTenant := map[string][]*models.Device{
		"t1": {{DeviceID: "d1"}, {DeviceID: "d2"}},
	}
	svc := NewDeviceService(nil, &stubRepoManager{devices: &stubDevicesRepo{
		listFn: func(ctx context.Context, tenantID string) ([]*models.Device, error) {
			return devicesByTenant[tenantID], nil
		},
		summarizeFn: func(ctx context.Context, tenantID string) ([]*models.DeviceSummary, error) {
			var out []*models.DeviceSummary
			for _, d := range devicesByTenant[tenantID] {
				out = append(out, &models.DeviceSummary{Device: models.Device{DeviceID: d.DeviceID}, Status: "unknown"})
			}
			return out, nil
		},
	}})

	list, err := svc.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	summaries, err := svc.Summarize(context.Background(), "t2")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
