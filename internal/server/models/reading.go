package models

import "time"

// ReadingStatusActive is the default status a reading is ingested with.
// Anything else counts toward a device's error tally.
const ReadingStatusActive = "active"

// Reading is one immutable telemetry sample. TenantID is always taken
// from the verified principal at write time, never from client input.
type Reading struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"-"`
	DeviceID    string    `json:"device_id"`
	Timestamp   time.Time `json:"timestamp"`
	EnergyUsage float64   `json:"energy_usage"`
	Voltage     *float64  `json:"voltage,omitempty"`
	Current     *float64  `json:"current,omitempty"`
	PowerFactor *float64  `json:"power_factor,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	Status      string    `json:"status"`
}

// ReadingFilter narrows a tenant-scoped telemetry query. The tenant id is
// deliberately not part of the filter: repositories take it as a separate
// mandatory argument so it cannot be omitted.
type ReadingFilter struct {
	DeviceID string
	From     *time.Time
	To       *time.Time
	Limit    int
}
