package models

import "time"

// AnalyticsResult is computed on demand from the readings table and never
// persisted or cached.
type AnalyticsResult struct {
	DeviceID        string    `json:"device_id"`
	Period          string    `json:"period"`
	TotalEnergy     float64   `json:"total_energy"`
	AverageEnergy   float64   `json:"average_energy"`
	PeakEnergy      float64   `json:"peak_energy"`
	CostEstimate    float64   `json:"cost_estimate"`
	CarbonFootprint float64   `json:"carbon_footprint"`
	SampleCount     int64     `json:"sample_count"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
}

// EnergyStats is the raw aggregate a readings repository returns for one
// device window. Averages and derived estimates are computed by the
// analytics service on top of it.
type EnergyStats struct {
	TotalEnergy float64
	PeakEnergy  float64
	SampleCount int64
}
