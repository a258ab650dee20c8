package service

import (
	"testing"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
)

func square(name string, lo, hi float64) *models.Zone {
	return &models.Zone{
		Name: name,
		Vertices: spatial.CloseRing([]spatial.Point{
			{Lat: lo, Lon: lo}, {Lat: lo, Lon: hi}, {Lat: hi, Lon: hi}, {Lat: hi, Lon: lo},
		}),
	}
}

func TestZoneClassifier(t *testing.T) {
	c := NewZoneClassifier(square(models.ZoneDeployment, 0, 10), square(models.ZoneOperational, 5, 20))

	tests := []struct {
		name        string
		lat, lon    float64
		deployment  bool
		operational bool
	}{
		{"deployment only", 2, 2, true, false},
		{"both", 7, 7, true, true},
		{"operational only", 15, 15, false, true},
		{"neither", 30, 30, false, false},
	}

	fixes := make([]models.Fix, len(tests))
	for i, tt := range tests {
		fixes[i] = fix("A", 0, tt.lat, tt.lon)
	}
	got := c.Classify(fixes)

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got[i].InDeploymentZone != tt.deployment {
				t.Errorf("deployment = %v, want %v", got[i].InDeploymentZone, tt.deployment)
			}
			if got[i].InOperationalZone != tt.operational {
				t.Errorf("operational = %v, want %v", got[i].InOperationalZone, tt.operational)
			}
		})
	}
	if fixes[0].InDeploymentZone {
		t.Errorf("Classify modified its input")
	}
}

func TestZoneClassifierMissingZones(t *testing.T) {
	got := NewZoneClassifier(nil, nil).Classify([]models.Fix{fix("A", 0, 5, 5)})
	if got[0].InAnyZone() {
		t.Errorf("fix classified inside a zone that was not loaded")
	}
}
