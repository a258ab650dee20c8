package service

import "github.com/rdallagnolo/repo-fad-tracking/internal/models"

// ReconcileResult is the merged archive and the fixes it gained
type ReconcileResult struct {
	Archive    []models.Fix
	Added      []models.Fix
	Duplicates int
}

// Reconcile merges incoming fixes into the existing archive. A fix whose
// (buoy_id, timestamp) is already archived, or was already accepted earlier
// in the same batch, is discarded; archived fixes are never overwritten.
// Accepted fixes are appended after the archive with continuing Seq values,
// so reconciling the same batch twice leaves the archive unchanged.
func Reconcile(existing, incoming []models.Fix) ReconcileResult {
	seen := make(map[models.FixKey]struct{}, len(existing)+len(incoming))
	nextSeq := 0
	for _, f := range existing {
		seen[f.Key()] = struct{}{}
		if f.Seq >= nextSeq {
			nextSeq = f.Seq + 1
		}
	}

	archive := make([]models.Fix, len(existing), len(existing)+len(incoming))
	copy(archive, existing)

	var added []models.Fix
	duplicates := 0
	for _, f := range incoming {
		key := f.Key()
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		f.Seq = nextSeq
		nextSeq++
		archive = append(archive, f)
		added = append(added, f)
	}

	return ReconcileResult{Archive: archive, Added: added, Duplicates: duplicates}
}
