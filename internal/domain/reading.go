package domain

import "time"

// ─── Telemetry Types ────────────────────────────────────────────────────────

// DeviceReading is one device's slice of a metering sample.
// SetpointC is zero for devices without a temperature setpoint.
type DeviceReading struct {
	DeviceID   string  `json:"device_id"`
	DeviceType string  `json:"device_type"`
	PowerW     float64 `json:"power_w"`
	SetpointC  float64 `json:"setpoint_c,omitempty"`
}

// Reading is a timestamped telemetry sample from the metering source.
// Delivery may be duplicated or out of order; consumers must tolerate both.
type Reading struct {
	Timestamp     time.Time       `json:"timestamp"`
	PowerW        float64         `json:"power_w"`
	CumulativeKWh float64         `json:"cumulative_kwh"`
	PowerFactor   float64         `json:"power_factor"`
	Devices       []DeviceReading `json:"devices,omitempty"`
}

// Device returns the breakdown entry for the given device id, if present.
func (r Reading) Device(id string) (DeviceReading, bool) {
	for _, d := range r.Devices {
		if d.DeviceID == id {
			return d, true
		}
	}
	return DeviceReading{}, false
}

// EfficiencyScore derives a 0–10 efficiency score from the power factor.
func (r Reading) EfficiencyScore() float64 {
	s := r.PowerFactor * 10
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// ─── Usage Snapshot Types ───────────────────────────────────────────────────

// DeviceUsage summarizes one device's recent consumption.
type DeviceUsage struct {
	DeviceID    string  `json:"device_id"`
	DeviceType  string  `json:"device_type"`
	AvgDailyKWh float64 `json:"avg_daily_kwh"`
}

// UsageSnapshot is the analyzer's per-user input, computed once per
// generation cycle from recent readings.
type UsageSnapshot struct {
	UserID          string        `json:"user_id"`
	Devices         []DeviceUsage `json:"devices"`
	PeakHour        int           `json:"peak_hour"` // 0–23
	TotalDailyKWh   float64       `json:"total_daily_kwh"`
	EfficiencyScore float64       `json:"efficiency_score"` // 0–10
}

// HighestDevice returns the device with the largest average daily usage.
func (s UsageSnapshot) HighestDevice() (DeviceUsage, bool) {
	if len(s.Devices) == 0 {
		return DeviceUsage{}, false
	}
	top := s.Devices[0]
	for _, d := range s.Devices[1:] {
		if d.AvgDailyKWh > top.AvgDailyKWh {
			top = d
		}
	}
	return top, true
}
