package models

import "time"

// BuoyStatus is the derived state of one buoy at the run's reference time
type BuoyStatus struct {
	BuoyID   string        `json:"buoyId"`
	Latest   Fix           `json:"latest"`
	IsActive bool          `json:"isActive"`
	Age      time.Duration `json:"-"`
	FixCount int           `json:"fixCount"`
}

// InAnyZone reports the zone membership of the latest fix.
func (s BuoyStatus) InAnyZone() bool {
	return s.Latest.InAnyZone()
}

// Track is the ascending-time sequence of one active buoy's fixes
type Track struct {
	BuoyID string `json:"buoyId"`
	Fixes  []Fix  `json:"fixes"`
}

// Degenerate reports whether the track is a single point.
func (t Track) Degenerate() bool {
	return len(t.Fixes) < 2
}

// Start returns the first fix time.
func (t Track) Start() time.Time {
	if len(t.Fixes) == 0 {
		return time.Time{}
	}
	return t.Fixes[0].Timestamp
}

// End returns the last fix time.
func (t Track) End() time.Time {
	if len(t.Fixes) == 0 {
		return time.Time{}
	}
	return t.Fixes[len(t.Fixes)-1].Timestamp
}

// Anomaly flags a same-buoy timestamp tie seen while resolving the latest fix
type Anomaly struct {
	BuoyID    string    `json:"buoyId"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}
