package service

import (
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
)

// ZoneClassifier tests fixes against the deployment and operational zones.
// A zone that failed to load is nil and contains nothing.
type ZoneClassifier struct {
	deployment  *spatial.Polygon
	operational *spatial.Polygon
}

// NewZoneClassifier creates a classifier; either zone may be nil
func NewZoneClassifier(deployment, operational *models.Zone) *ZoneClassifier {
	return &ZoneClassifier{
		deployment:  polygonOf(deployment),
		operational: polygonOf(operational),
	}
}

func polygonOf(z *models.Zone) *spatial.Polygon {
	if z == nil || len(z.Vertices) < 3 {
		return nil
	}
	p := spatial.NewPolygon(z.Vertices)
	return &p
}

// Classify returns a copy of fixes with both zone flags set. Membership is
// the planar (lat, lon) even-odd test; see spatial.PointInPolygon for the
// boundary rule.
func (c *ZoneClassifier) Classify(fixes []models.Fix) []models.Fix {
	out := make([]models.Fix, len(fixes))
	for i, f := range fixes {
		pt := spatial.Point{Lat: f.Latitude, Lon: f.Longitude}
		f.InDeploymentZone = c.deployment != nil && c.deployment.Contains(pt)
		f.InOperationalZone = c.operational != nil && c.operational.Contains(pt)
		out[i] = f
	}
	return out
}
