package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

func sampleFixes() []models.Fix {
	speed := 1.5
	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	return []models.Fix{
		{BuoyID: "B", Timestamp: base.Add(time.Hour), Latitude: -3.75, Longitude: 10.5, SpeedKn: &speed, Seq: 0},
		{BuoyID: "A", Timestamp: base, Latitude: 1.125, Longitude: -20.0625, Seq: 1},
		{BuoyID: "A", Timestamp: base.Add(2 * time.Hour), Latitude: 1.25, Longitude: -20.125, Seq: 2},
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	for _, backend := range []string{BackendCSV, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "archive", "fad_archive."+backend)

			a, err := OpenArchive(backend, path)
			if err != nil {
				t.Fatalf("OpenArchive failed: %v", err)
			}
			defer a.Close()

			fixes, dropped, err := a.Load(ctx)
			if err != nil || len(fixes) != 0 || len(dropped) != 0 {
				t.Fatalf("fresh archive should be empty: %v %v %v", fixes, dropped, err)
			}

			in := sampleFixes()
			if err := a.Save(ctx, in, in); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			got, dropped, err := a.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(dropped) != 0 {
				t.Errorf("unexpected dropped rows %+v", dropped)
			}
			if len(got) != len(in) {
				t.Fatalf("expected %d fixes, got %d", len(in), len(got))
			}
			for i := range in {
				if got[i].Key() != in[i].Key() {
					t.Errorf("fix %d: key %+v, want %+v", i, got[i].Key(), in[i].Key())
				}
				if got[i].Latitude != in[i].Latitude || got[i].Longitude != in[i].Longitude {
					t.Errorf("fix %d: coordinates changed", i)
				}
				if got[i].Seq != i {
					t.Errorf("fix %d: seq %d", i, got[i].Seq)
				}
			}
			if got[0].SpeedKn == nil || *got[0].SpeedKn != 1.5 {
				t.Errorf("speed lost: %v", got[0].SpeedKn)
			}
			if got[1].SpeedKn != nil {
				t.Errorf("absent speed became %v", *got[1].SpeedKn)
			}

			// saving again with nothing new keeps the archive as is
			if err := a.Save(ctx, got, nil); err != nil {
				t.Fatalf("second Save failed: %v", err)
			}
			again, _, err := a.Load(ctx)
			if err != nil || len(again) != len(in) {
				t.Fatalf("archive changed after no-op save: %d fixes, %v", len(again), err)
			}
		})
	}
}

func TestCSVArchiveDropsCorruptRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fad_archive.csv", strings.Join([]string{
		"buoy_id,timestamp,latitude,longitude,speed_kn,course_deg,seq",
		"A,2025-01-02T10:00:00Z,1,2,,,0",
		"A,2025-01-02T10:00:00Z,9,9,,,1",
		"B,not-a-time,1,2,,,2",
		"C,2025-01-02T10:00:00Z,91,2,,,3",
		"D,2025-01-03T10:00:00Z,5,6,,,4",
		"",
	}, "\n"))

	fixes, dropped, err := NewCSVArchive(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(fixes) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(fixes))
	}
	if fixes[0].Latitude != 1 {
		t.Errorf("first occurrence of a duplicate key must win, got %+v", fixes[0])
	}
	if len(dropped) != 3 {
		t.Errorf("expected 3 dropped rows, got %+v", dropped)
	}
}

func TestCSVArchiveDuplicateKeepsLowestSeq(t *testing.T) {
	path := writeFile(t, t.TempDir(), "fad_archive.csv", strings.Join([]string{
		"buoy_id,timestamp,latitude,longitude,speed_kn,course_deg,seq",
		"B,2025-01-02T11:00:00Z,3,4,,,1",
		"A,2025-01-02T10:00:00Z,9,9,,,2",
		"A,2025-01-02T10:00:00Z,1,2,,,0",
		"",
	}, "\n"))

	fixes, dropped, err := NewCSVArchive(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(fixes) != 2 || len(dropped) != 1 {
		t.Fatalf("expected 2 fixes and 1 dropped row, got %d and %d", len(fixes), len(dropped))
	}
	if fixes[0].BuoyID != "A" || fixes[0].Latitude != 1 || fixes[0].Seq != 0 {
		t.Errorf("lowest seq copy must win, got %+v", fixes[0])
	}
	if dropped[0].Line != 3 {
		t.Errorf("dropped line = %d, want 3", dropped[0].Line)
	}
}

func TestSQLiteArchivePurgesCorruptRows(t *testing.T) {
	ctx := context.Background()
	a, err := OpenSQLiteArchive(filepath.Join(t.TempDir(), "fad_archive.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteArchive failed: %v", err)
	}
	defer a.Close()

	base := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	if _, err := a.db.Exec(`INSERT INTO fixes (buoy_id, ts, latitude, longitude, seq, ingested_at)
		VALUES ('A', ?, 200, 10, 0, 'x'), ('B', ?, 1, 2, 1, 'x')`, base.Unix(), base.Unix()); err != nil {
		t.Fatal(err)
	}

	existing, dropped, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(existing) != 1 || len(dropped) != 1 {
		t.Fatalf("expected 1 fix and 1 dropped row, got %d and %d", len(existing), len(dropped))
	}

	// a valid fix with the corrupt row's key must replace it
	valid := models.Fix{BuoyID: "A", Timestamp: base, Latitude: -3.5, Longitude: 10, Seq: 1}
	if err := a.Save(ctx, append(existing, valid), []models.Fix{valid}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, dropped, err := a.Load(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(dropped) != 0 {
		t.Errorf("corrupt row survived the save: %+v", dropped)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fixes, got %d", len(got))
	}
	if got[0].BuoyID != "B" || got[1].BuoyID != "A" || got[1].Latitude != -3.5 {
		t.Errorf("unexpected archive %+v", got)
	}

	// a save with nothing added still purges
	if _, err := a.db.Exec(`INSERT INTO fixes (buoy_id, ts, latitude, longitude, seq, ingested_at)
		VALUES ('C', ?, 1, 999, 7, 'x')`, base.Unix()); err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, got, nil); err != nil {
		t.Fatalf("no-op Save failed: %v", err)
	}
	var n int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM fixes").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored rows = %d, want 2", n)
	}
}

func TestCSVArchiveUnreadableIsFatal(t *testing.T) {
	dir := t.TempDir()
	// a directory in place of the file cannot be read
	path := filepath.Join(dir, "fad_archive.csv")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := NewCSVArchive(path).Load(context.Background())
	var aerr *ArchiveIOError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected ArchiveIOError, got %v", err)
	}
	if aerr.Op != "read" {
		t.Errorf("op = %q", aerr.Op)
	}
}

func TestCSVArchiveSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	a := NewCSVArchive(filepath.Join(blocker, "fad_archive.csv"))
	err := a.Save(context.Background(), sampleFixes(), sampleFixes())
	var aerr *ArchiveIOError
	if !errors.As(err, &aerr) || aerr.Op != "write" {
		t.Fatalf("expected write ArchiveIOError, got %v", err)
	}
}

func TestOpenArchiveUnknownBackend(t *testing.T) {
	if _, err := OpenArchive("parquet", "x"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
