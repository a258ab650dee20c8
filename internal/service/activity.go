package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

// DefaultStaleness is how long a buoy may stay silent and still be active.
const DefaultStaleness = 7 * 24 * time.Hour

// Activity is the per-buoy state derived from the archive
type Activity struct {
	Active    []models.BuoyStatus // by buoy_id
	Inactive  []models.BuoyStatus // by last seen, oldest first
	Tracks    []models.Track      // active buoys only, by buoy_id
	Anomalies []models.Anomaly
}

// ActivityResolver splits buoys into active and inactive around a fixed
// reference time
type ActivityResolver struct {
	threshold time.Duration
}

// NewActivityResolver creates a resolver; a non-positive threshold means
// DefaultStaleness
func NewActivityResolver(threshold time.Duration) *ActivityResolver {
	if threshold <= 0 {
		threshold = DefaultStaleness
	}
	return &ActivityResolver{threshold: threshold}
}

// Threshold returns the staleness threshold in use.
func (r *ActivityResolver) Threshold() time.Duration {
	return r.threshold
}

// Resolve groups fixes by buoy and picks each buoy's latest fix. A buoy is
// active when now minus its latest timestamp is at most the threshold, so
// future-dated fixes count as active. Two fixes of one buoy sharing a
// timestamp cannot come out of Reconcile; if seen anyway the one with the
// larger Seq wins and an anomaly is recorded.
func (r *ActivityResolver) Resolve(fixes []models.Fix, now time.Time) Activity {
	byBuoy := make(map[string][]models.Fix)
	for _, f := range fixes {
		byBuoy[f.BuoyID] = append(byBuoy[f.BuoyID], f)
	}

	ids := make([]string, 0, len(byBuoy))
	for id := range byBuoy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out Activity
	for _, id := range ids {
		group := byBuoy[id]
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].Timestamp.Equal(group[j].Timestamp) {
				return group[i].Timestamp.Before(group[j].Timestamp)
			}
			return group[i].Seq < group[j].Seq
		})

		for i := 1; i < len(group); i++ {
			if group[i].Timestamp.Equal(group[i-1].Timestamp) {
				out.Anomalies = append(out.Anomalies, models.Anomaly{
					BuoyID:    id,
					Timestamp: group[i].Timestamp,
					Detail:    fmt.Sprintf("fixes with seq %d and %d share a timestamp", group[i-1].Seq, group[i].Seq),
				})
			}
		}

		latest := group[len(group)-1]
		age := now.Sub(latest.Timestamp)
		status := models.BuoyStatus{
			BuoyID:   id,
			Latest:   latest,
			IsActive: age <= r.threshold,
			Age:      age,
			FixCount: len(group),
		}

		if status.IsActive {
			out.Active = append(out.Active, status)
			out.Tracks = append(out.Tracks, models.Track{BuoyID: id, Fixes: group})
		} else {
			out.Inactive = append(out.Inactive, status)
		}
	}

	sort.SliceStable(out.Inactive, func(i, j int) bool {
		a, b := out.Inactive[i].Latest.Timestamp, out.Inactive[j].Latest.Timestamp
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out.Inactive[i].BuoyID < out.Inactive[j].BuoyID
	})
	return out
}
