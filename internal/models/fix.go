package models

import "time"

// TimestampLayout is the fixed textual format of batch timestamps.
const TimestampLayout = "02/01/2006 15:04:05"

// Fix represents one GPS observation of a buoy
type Fix struct {
	BuoyID    string    `json:"buoyId"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	SpeedKn   *float64  `json:"speedKn,omitempty"`
	CourseDeg *float64  `json:"courseDeg,omitempty"`

	// Set by the zone classifier, never persisted
	InDeploymentZone  bool `json:"inDeploymentZone"`
	InOperationalZone bool `json:"inOperationalZone"`

	// Seq is the row insertion order within a run: archived fixes first, in
	// archive order, then incoming fixes in ingestion order.
	Seq int `json:"-"`
}

// Key returns the dedup key of the fix.
func (f Fix) Key() FixKey {
	return FixKey{BuoyID: f.BuoyID, Timestamp: f.Timestamp.UTC().Unix()}
}

// InAnyZone reports whether the fix is inside the deployment or the operational zone.
func (f Fix) InAnyZone() bool {
	return f.InDeploymentZone || f.InOperationalZone
}

// FixKey is the (buoy_id, timestamp) uniqueness key. Timestamps carry
// whole-second precision in every input format.
type FixKey struct {
	BuoyID    string
	Timestamp int64 // Unix seconds
}

// RejectedRow records a batch or archive row that could not be parsed
type RejectedRow struct {
	Source string `json:"source"`
	Line   int    `json:"line"`
	BuoyID string `json:"buoyId,omitempty"`
	Reason string `json:"reason"`
}
