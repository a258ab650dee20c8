package export

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

// Artifact names
const (
	ArchiveCSV  = "all_points.csv"
	LatestCSV   = "latest_positions.csv"
	InactiveCSV = "inactive_buoys.csv"
	RejectedCSV = "rejected_rows.csv"
)

var fixHeader = []string{
	"buoy_id", "timestamp", "latitude", "longitude", "speed_kn", "course_deg",
	"in_deployment_zone", "in_operational_zone", "in_area",
}

func fixRecord(f models.Fix) []string {
	return []string{
		f.BuoyID,
		formatTime(f.Timestamp),
		formatFloat(f.Latitude),
		formatFloat(f.Longitude),
		formatOptional(f.SpeedKn),
		formatOptional(f.CourseDeg),
		strconv.FormatBool(f.InDeploymentZone),
		strconv.FormatBool(f.InOperationalZone),
		strconv.FormatBool(f.InAnyZone()),
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

// ArchiveTable writes the whole archive, newest first
type ArchiveTable struct{}

func (ArchiveTable) Name() string        { return "archive table" }
func (ArchiveTable) Artifacts() []string { return []string{ArchiveCSV} }

func (ArchiveTable) Emit(ctx context.Context, dir string, ds *Dataset) error {
	fixes := make([]models.Fix, len(ds.Archive))
	copy(fixes, ds.Archive)
	sort.SliceStable(fixes, func(i, j int) bool {
		if !fixes[i].Timestamp.Equal(fixes[j].Timestamp) {
			return fixes[i].Timestamp.After(fixes[j].Timestamp)
		}
		return fixes[i].BuoyID < fixes[j].BuoyID
	})

	rows := make([][]string, len(fixes))
	for i, f := range fixes {
		rows[i] = fixRecord(f)
	}
	if err := writeCSV(filepath.Join(dir, ArchiveCSV), fixHeader, rows); err != nil {
		return &OutputWriteError{Artifact: ArchiveCSV, Err: err}
	}
	return nil
}

// LatestTable writes the latest fix of each active buoy
type LatestTable struct{}

func (LatestTable) Name() string        { return "latest positions table" }
func (LatestTable) Artifacts() []string { return []string{LatestCSV} }

func (LatestTable) Emit(ctx context.Context, dir string, ds *Dataset) error {
	rows := make([][]string, len(ds.Activity.Active))
	for i, s := range ds.Activity.Active {
		rows[i] = fixRecord(s.Latest)
	}
	if err := writeCSV(filepath.Join(dir, LatestCSV), fixHeader, rows); err != nil {
		return &OutputWriteError{Artifact: LatestCSV, Err: err}
	}
	return nil
}

// InactiveTable lists buoys that went silent
type InactiveTable struct{}

func (InactiveTable) Name() string        { return "inactive buoys table" }
func (InactiveTable) Artifacts() []string { return []string{InactiveCSV} }

func (InactiveTable) Emit(ctx context.Context, dir string, ds *Dataset) error {
	rows := make([][]string, len(ds.Activity.Inactive))
	for i, s := range ds.Activity.Inactive {
		rows[i] = []string{
			s.BuoyID,
			formatTime(s.Latest.Timestamp),
			formatFloat(s.Latest.Latitude),
			formatFloat(s.Latest.Longitude),
			strconv.Itoa(int(s.Age.Hours() / 24)),
		}
	}
	header := []string{"buoy_id", "last_seen", "latitude", "longitude", "days_silent"}
	if err := writeCSV(filepath.Join(dir, InactiveCSV), header, rows); err != nil {
		return &OutputWriteError{Artifact: InactiveCSV, Err: err}
	}
	return nil
}

// RejectedTable lists every batch row that was not ingested
type RejectedTable struct{}

func (RejectedTable) Name() string        { return "rejected rows table" }
func (RejectedTable) Artifacts() []string { return []string{RejectedCSV} }

func (RejectedTable) Emit(ctx context.Context, dir string, ds *Dataset) error {
	rows := make([][]string, len(ds.Rejected))
	for i, r := range ds.Rejected {
		rows[i] = []string{r.Source, strconv.Itoa(r.Line), r.BuoyID, r.Reason}
	}
	header := []string{"source", "line", "buoy_id", "reason"}
	if err := writeCSV(filepath.Join(dir, RejectedCSV), header, rows); err != nil {
		return &OutputWriteError{Artifact: RejectedCSV, Err: err}
	}
	return nil
}
