package models

import "time"

// RunSummary is the user-visible outcome of one pipeline run
type RunSummary struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Now        time.Time `json:"now"`

	BatchFiles     []string `json:"batchFiles"`
	FixesIngested  int      `json:"fixesIngested"`
	RowsRejected   int      `json:"rowsRejected"`
	NewlyArchived  int      `json:"newlyArchived"`
	DuplicateFixes int      `json:"duplicateFixes"`
	ArchiveSize    int      `json:"archiveSize"`
	ArchiveDropped int      `json:"archiveDropped"`
	ActiveBuoys    int      `json:"activeBuoys"`
	InactiveBuoys  int      `json:"inactiveBuoys"`
	Anomalies      int      `json:"anomalies"`

	ZonesLoaded      []string `json:"zonesLoaded"`
	Artifacts        []string `json:"artifacts"`
	SkippedArtifacts []string `json:"skippedArtifacts,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}
