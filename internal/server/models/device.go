// Package models defines the persisted and derived data structures shared
// by services and repositories on the server side.
package models

import "time"

// Device is one tenant-owned device record. DeviceID is unique within a
// tenant, not globally; the same sensor id may exist under two tenants.
type Device struct {
	ID        int64     `json:"-"`
	TenantID  string    `json:"-"`
	DeviceID  string    `json:"device_id"`
	Name      string    `json:"device_name"`
	Type      string    `json:"device_type"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceSummary pairs a device with its most recent reading, if any.
// Devices that never reported show a zero Latest and Status "unknown".
type DeviceSummary struct {
	Device
	LatestEnergyUsage *float64   `json:"latest_energy_usage"`
	LastUpdate        *time.Time `json:"last_update"`
	Status            string     `json:"status"`
}
