package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadBatchCommaDialect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "buoys_1.csv", strings.Join([]string{
		"buoy_id,timestamp,latitude,longitude",
		"FAD-1,02/01/2025 10:00:00,-3.5,10.25",
		"FAD-2,02/01/2025 11:00:00,3°45'33.1\" S,10°29'37.3\" E",
		"FAD-3,02/01/2025 12:00:00,95.0,10.0",
		"",
	}, "\n"))

	fixes, rejected := NewFixRepository(time.UTC).ReadBatch(path)

	if len(fixes) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(fixes))
	}
	if len(rejected) != 1 {
		t.Fatalf("expected 1 rejected row, got %d", len(rejected))
	}
	if rejected[0].Line != 4 || rejected[0].BuoyID != "FAD-3" {
		t.Errorf("unexpected rejection %+v", rejected[0])
	}

	want := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	if !fixes[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", fixes[0].Timestamp, want)
	}
	if fixes[1].Latitude >= 0 || fixes[1].Longitude <= 0 {
		t.Errorf("hemispheres not applied: %v, %v", fixes[1].Latitude, fixes[1].Longitude)
	}
	if fixes[0].SpeedKn != nil {
		t.Errorf("speed should be absent")
	}
}

func TestReadBatchDeviceDialect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "buoys_2.csv",
		"NAME;DATE;LATITUDE;LONGITUDE;SPEED;COURSE;\n"+
			"FAD-9;15/03/2025 08:30:00;-4.25;9.75;1.2;270;\n")

	loc := time.FixedZone("WAT", 3600)
	fixes, rejected := NewFixRepository(loc).ReadBatch(path)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(fixes) != 1 {
		t.Fatalf("expected 1 fix, got %d", len(fixes))
	}
	f := fixes[0]
	if f.BuoyID != "FAD-9" {
		t.Errorf("buoy id = %q", f.BuoyID)
	}
	if want := time.Date(2025, 3, 15, 7, 30, 0, 0, time.UTC); !f.Timestamp.Equal(want) || f.Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v in UTC", f.Timestamp, want)
	}
	if f.SpeedKn == nil || *f.SpeedKn != 1.2 {
		t.Errorf("speed = %v", f.SpeedKn)
	}
	if f.CourseDeg == nil || *f.CourseDeg != 270 {
		t.Errorf("course = %v", f.CourseDeg)
	}
}

func TestReadBatchRowRejections(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		reason string
	}{
		{"missing id", ",02/01/2025 10:00:00,1,1", "missing buoy id"},
		{"bad timestamp", "A,2025-01-02 10:00,1,1", "invalid timestamp"},
		{"bad latitude", "A,02/01/2025 10:00:00,abc,1", "latitude"},
		{"bad longitude", "A,02/01/2025 10:00:00,1,181", "longitude"},
		{"wrong hemisphere", "A,02/01/2025 10:00:00,1 E,1", "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "b.csv", "buoy_id,timestamp,latitude,longitude\n"+tt.row+"\n")
			fixes, rejected := NewFixRepository(time.UTC).ReadBatch(path)
			if len(fixes) != 0 {
				t.Fatalf("expected no fixes, got %d", len(fixes))
			}
			if len(rejected) != 1 {
				t.Fatalf("expected 1 rejection, got %d", len(rejected))
			}
			if !strings.Contains(rejected[0].Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", rejected[0].Reason, tt.reason)
			}
			if rejected[0].Line != 2 {
				t.Errorf("line = %d, want 2", rejected[0].Line)
			}
		})
	}
}

func TestReadBatchMissingColumnsRejectsFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "b.csv", "buoy_id,when,latitude\nA,x,1\n")
	fixes, rejected := NewFixRepository(time.UTC).ReadBatch(path)
	if len(fixes) != 0 || len(rejected) != 1 {
		t.Fatalf("expected whole-file rejection, got %d fixes %d rejected", len(fixes), len(rejected))
	}
	if rejected[0].Line != 1 || !strings.Contains(rejected[0].Reason, "timestamp") {
		t.Errorf("unexpected rejection %+v", rejected[0])
	}
}

func TestDiscoverAndIngestFiles(t *testing.T) {
	dir := t.TempDir()
	header := "buoy_id,timestamp,latitude,longitude\n"
	writeFile(t, dir, "buoys_b.csv", header+"B,02/01/2025 10:00:00,1,1\n")
	writeFile(t, dir, "buoys_a.csv", header+"A,02/01/2025 10:00:00,1,1\nA,02/01/2025 11:00:00,1,1\n")
	writeFile(t, dir, "other.csv", header+"C,02/01/2025 10:00:00,1,1\n")
	if err := os.Mkdir(filepath.Join(dir, "buoys_dir.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	repo := NewFixRepository(time.UTC)
	files, err := repo.Discover(dir, "buoys*.csv")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "buoys_a.csv" {
		t.Fatalf("unexpected files %v", files)
	}

	res := repo.IngestFiles(append(files, filepath.Join(dir, "buoys_missing.csv")))
	if len(res.Fixes) != 3 {
		t.Fatalf("expected 3 fixes, got %d", len(res.Fixes))
	}
	for i, f := range res.Fixes {
		if f.Seq != i {
			t.Errorf("fix %d has seq %d", i, f.Seq)
		}
	}
	if res.Fixes[2].BuoyID != "B" {
		t.Errorf("files not ingested in order: %+v", res.Fixes)
	}
	if len(res.Rejected) != 1 || res.Rejected[0].Source != "buoys_missing.csv" {
		t.Errorf("unreadable file should yield one rejection, got %+v", res.Rejected)
	}
}

func TestReadBatchLatin1(t *testing.T) {
	path := writeFile(t, t.TempDir(), "b.csv",
		"NAME;DATE;LATITUDE;LONGITUDE\nA;02/01/2025 10:00:00;3\xba30' S;10\xba15' E\n")
	fixes, rejected := NewFixRepository(time.UTC).ReadBatch(path)
	if len(rejected) != 0 || len(fixes) != 1 {
		t.Fatalf("expected one fix, got %d fixes %+v", len(fixes), rejected)
	}
	if fixes[0].Latitude != -3.5 || fixes[0].Longitude != 10.25 {
		t.Errorf("got %v, %v", fixes[0].Latitude, fixes[0].Longitude)
	}
}
