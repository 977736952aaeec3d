package models

import "time"

// HealthReport is a pure function of current store contents, recomputed
// per call.
type HealthReport struct {
	DeviceID         string    `json:"device_id"`
	Status           string    `json:"status"`
	LastSeen         time.Time `json:"last_seen"`
	UptimePercentage float64   `json:"uptime_percentage"`
	ErrorCount       int64     `json:"error_count"`
	MaintenanceDue   bool      `json:"maintenance_due"`
	Recommendations  []string  `json:"recommendations"`
}
