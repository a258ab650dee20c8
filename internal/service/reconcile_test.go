package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

var t0 = time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

func fix(id string, offset time.Duration, lat, lon float64) models.Fix {
	return models.Fix{BuoyID: id, Timestamp: t0.Add(offset), Latitude: lat, Longitude: lon}
}

func TestReconcileDiscardsKnownKeys(t *testing.T) {
	existing := []models.Fix{fix("A", 0, 1, 1), fix("B", 0, 2, 2)}
	existing[0].Seq, existing[1].Seq = 0, 1

	incoming := []models.Fix{
		fix("A", 0, 9, 9), // already archived, must not overwrite
		fix("A", time.Hour, 1, 2),
		fix("C", 0, 3, 3),
		fix("C", 0, 4, 4), // repeated within the batch
	}

	res := Reconcile(existing, incoming)

	if len(res.Archive) != 4 {
		t.Fatalf("expected archive of 4, got %d", len(res.Archive))
	}
	if len(res.Added) != 2 || res.Duplicates != 2 {
		t.Fatalf("expected 2 added and 2 duplicates, got %d and %d", len(res.Added), res.Duplicates)
	}
	if res.Archive[0].Latitude != 1 {
		t.Errorf("archived fix was overwritten: %+v", res.Archive[0])
	}
	if res.Added[1].Latitude != 3 {
		t.Errorf("first occurrence in batch should win, got %+v", res.Added[1])
	}
	if res.Added[0].Seq != 2 || res.Added[1].Seq != 3 {
		t.Errorf("seq should continue from archive: %d, %d", res.Added[0].Seq, res.Added[1].Seq)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	incoming := []models.Fix{fix("A", 0, 1, 1), fix("A", time.Hour, 1, 2), fix("B", 0, 2, 2)}

	once := Reconcile(nil, incoming)
	twice := Reconcile(once.Archive, incoming)

	if len(twice.Added) != 0 {
		t.Errorf("second reconcile added %d fixes", len(twice.Added))
	}
	if !reflect.DeepEqual(once.Archive, twice.Archive) {
		t.Errorf("archive changed on second reconcile")
	}
}

func TestReconcileUniqueness(t *testing.T) {
	var incoming []models.Fix
	for i := 0; i < 50; i++ {
		incoming = append(incoming, fix(string(rune('A'+i%3)), time.Duration(i%7)*time.Minute, 0, 0))
	}
	res := Reconcile(Reconcile(nil, incoming[:20]).Archive, incoming)

	seen := make(map[models.FixKey]bool)
	for _, f := range res.Archive {
		if seen[f.Key()] {
			t.Fatalf("duplicate key %+v", f.Key())
		}
		seen[f.Key()] = true
	}
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	existing := []models.Fix{fix("A", 0, 1, 1)}
	incoming := []models.Fix{fix("B", 0, 1, 1)}
	Reconcile(existing, incoming)
	if incoming[0].Seq != 0 || len(existing) != 1 {
		t.Errorf("inputs were modified")
	}
}
