package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

var archiveHeader = []string{"buoy_id", "timestamp", "latitude", "longitude", "speed_kn", "course_deg", "seq"}

var archiveSchema = columnSchema{
	"buoy_id":   {"buoy_id"},
	"timestamp": {"timestamp"},
	"latitude":  {"latitude"},
	"longitude": {"longitude"},
	"speed":     {"speed_kn"},
	"course":    {"course_deg"},
	"seq":       {"seq"},
}

// CSVArchive keeps the archive as one comma-separated file with RFC 3339
// UTC timestamps. The file is replaced atomically on every save.
type CSVArchive struct {
	path string
}

// NewCSVArchive creates a CSV archive handle. The file need not exist.
func NewCSVArchive(path string) *CSVArchive {
	return &CSVArchive{path: path}
}

func (a *CSVArchive) Path() string { return a.path }

func (a *CSVArchive) Close() error { return nil }

// Load reads the archive file. A missing file is an empty archive.
func (a *CSVArchive) Load(ctx context.Context) ([]models.Fix, []models.RejectedRow, error) {
	f, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}
	if info.Size() == 0 {
		return nil, nil, nil
	}

	t, err := readTable(f)
	if err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}
	cols, err := t.columns(archiveSchema, "buoy_id", "timestamp", "latitude", "longitude")
	if err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}

	source := filepath.Base(a.path)
	var dropped []models.RejectedRow
	for _, b := range t.badRows {
		dropped = append(dropped, models.RejectedRow{Source: source, Line: b.line, Reason: b.reason})
	}

	type entry struct {
		fix   models.Fix
		order int
		line  int
	}
	entries := make([]entry, 0, len(t.rows))
	for i, rec := range t.rows {
		fix, err := parseArchiveRow(rec, cols)
		if err != nil {
			dropped = append(dropped, models.RejectedRow{Source: source, Line: t.lines[i], BuoyID: field(rec, cols, "buoy_id"), Reason: err.Error()})
			continue
		}
		order := i
		if s := field(rec, cols, "seq"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				order = n
			}
		}
		entries = append(entries, entry{fix: fix, order: order, line: t.lines[i]})
	}

	// the earliest inserted copy of a key wins, whatever its line
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	fixes := make([]models.Fix, 0, len(entries))
	seen := make(map[models.FixKey]bool, len(entries))
	for _, e := range entries {
		if seen[e.fix.Key()] {
			dropped = append(dropped, models.RejectedRow{Source: source, Line: e.line, BuoyID: e.fix.BuoyID, Reason: "duplicate (buoy_id, timestamp) in archive"})
			continue
		}
		seen[e.fix.Key()] = true
		e.fix.Seq = len(fixes)
		fixes = append(fixes, e.fix)
	}

	for _, d := range dropped {
		log.Printf("[warning] archive %s line %d dropped: %s", source, d.Line, d.Reason)
	}
	return fixes, dropped, nil
}

// Save rewrites the whole archive in insertion order.
func (a *CSVArchive) Save(ctx context.Context, all, added []models.Fix) error {
	if err := ctx.Err(); err != nil {
		return &ArchiveIOError{Op: "write", Path: a.path, Err: err}
	}

	ordered := make([]models.Fix, len(all))
	copy(ordered, all)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	err := fsutil.WriteFileAtomic(a.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(archiveHeader); err != nil {
			return err
		}
		for i, f := range ordered {
			if err := cw.Write(archiveRecord(f, i)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return &ArchiveIOError{Op: "write", Path: a.path, Err: err}
	}
	return nil
}

func archiveRecord(f models.Fix, seq int) []string {
	return []string{
		f.BuoyID,
		f.Timestamp.UTC().Format(time.RFC3339),
		FormatFloat(f.Latitude),
		FormatFloat(f.Longitude),
		formatOptional(f.SpeedKn),
		formatOptional(f.CourseDeg),
		strconv.Itoa(seq),
	}
}

func parseArchiveRow(rec []string, cols map[string]int) (models.Fix, error) {
	id := field(rec, cols, "buoy_id")
	if id == "" {
		return models.Fix{}, errors.New("missing buoy id")
	}
	ts, err := time.Parse(time.RFC3339, field(rec, cols, "timestamp"))
	if err != nil {
		return models.Fix{}, fmt.Errorf("invalid timestamp %q", field(rec, cols, "timestamp"))
	}
	lat, err := strconv.ParseFloat(field(rec, cols, "latitude"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return models.Fix{}, fmt.Errorf("invalid latitude %q", field(rec, cols, "latitude"))
	}
	lon, err := strconv.ParseFloat(field(rec, cols, "longitude"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return models.Fix{}, fmt.Errorf("invalid longitude %q", field(rec, cols, "longitude"))
	}
	return models.Fix{
		BuoyID:    id,
		Timestamp: ts.UTC(),
		Latitude:  lat,
		Longitude: lon,
		SpeedKn:   optionalFloat(field(rec, cols, "speed")),
		CourseDeg: optionalFloat(field(rec, cols, "course")),
	}, nil
}

// FormatFloat renders a coordinate with the shortest exact representation.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}
