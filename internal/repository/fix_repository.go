package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
)

// Both the comma dialect (buoy_id,timestamp,latitude,longitude) and the
// device export (NAME;DATE;LATITUDE;LONGITUDE;SPEED;COURSE;) map onto this.
var batchSchema = columnSchema{
	"buoy_id":   {"buoy_id", "name", "buoy", "id"},
	"timestamp": {"timestamp", "date", "datetime", "time"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "long", "lon"},
	"speed":     {"speed_kn", "speed"},
	"course":    {"course_deg", "course"},
}

// IngestResult is the outcome of reading every batch of a run
type IngestResult struct {
	Files    []string
	Fixes    []models.Fix
	Rejected []models.RejectedRow
}

// FixRepository reads raw fix batches
type FixRepository struct {
	loc *time.Location
}

// NewFixRepository creates a fix reader that interprets batch timestamps in loc
func NewFixRepository(loc *time.Location) *FixRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &FixRepository{loc: loc}
}

// Discover lists batch files matching pattern in dir, sorted by name
func (r *FixRepository) Discover(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid batch pattern %q: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// IngestFiles reads every batch in order. A file that cannot be read or has
// an unusable header is recorded as one rejected row; bad rows are rejected
// individually. Seq numbers follow ingestion order.
func (r *FixRepository) IngestFiles(paths []string) IngestResult {
	res := IngestResult{Files: paths}
	for _, path := range paths {
		fixes, rejected := r.ReadBatch(path)
		for i := range fixes {
			fixes[i].Seq = len(res.Fixes) + i
		}
		res.Fixes = append(res.Fixes, fixes...)
		res.Rejected = append(res.Rejected, rejected...)
	}
	return res
}

// ReadBatch parses one batch file
func (r *FixRepository) ReadBatch(path string) ([]models.Fix, []models.RejectedRow) {
	source := filepath.Base(path)
	wholeFile := func(err error) []models.RejectedRow {
		return []models.RejectedRow{{Source: source, Line: 1, Reason: err.Error()}}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, wholeFile(err)
	}
	defer f.Close()

	t, err := readTable(f)
	if err != nil {
		return nil, wholeFile(err)
	}
	cols, err := t.columns(batchSchema, "buoy_id", "timestamp", "latitude", "longitude")
	if err != nil {
		return nil, wholeFile(err)
	}

	var rejected []models.RejectedRow
	for _, b := range t.badRows {
		rejected = append(rejected, models.RejectedRow{Source: source, Line: b.line, Reason: b.reason})
	}

	fixes := make([]models.Fix, 0, len(t.rows))
	for i, rec := range t.rows {
		fix, reason := r.parseRow(rec, cols)
		if reason != "" {
			rejected = append(rejected, models.RejectedRow{
				Source: source,
				Line:   t.lines[i],
				BuoyID: field(rec, cols, "buoy_id"),
				Reason: reason,
			})
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, rejected
}

func (r *FixRepository) parseRow(rec []string, cols map[string]int) (models.Fix, string) {
	id := field(rec, cols, "buoy_id")
	if id == "" {
		return models.Fix{}, "missing buoy id"
	}

	raw := field(rec, cols, "timestamp")
	ts, err := time.ParseInLocation(models.TimestampLayout, raw, r.loc)
	if err != nil {
		return models.Fix{}, fmt.Sprintf("invalid timestamp %q (want DD/MM/YYYY HH:MM:SS)", raw)
	}

	lat, err := spatial.ParseLatitude(field(rec, cols, "latitude"))
	if err != nil {
		return models.Fix{}, err.Error()
	}
	lon, err := spatial.ParseLongitude(field(rec, cols, "longitude"))
	if err != nil {
		return models.Fix{}, err.Error()
	}

	return models.Fix{
		BuoyID:    id,
		Timestamp: ts.UTC(),
		Latitude:  lat,
		Longitude: lon,
		SpeedKn:   optionalFloat(field(rec, cols, "speed")),
		CourseDeg: optionalFloat(field(rec, cols, "course")),
	}, ""
}

// optionalFloat never rejects: anything unparseable is treated as absent.
func optionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &v
}
