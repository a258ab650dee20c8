package export

import (
	"context"
	"io"
	"math"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
)

// Artifact names
const (
	PointsGeoJSON = "points.geojson"
	LatestGeoJSON = "latest.geojson"
	TracksGeoJSON = "tracks.geojson"
)

// GeoJSON writes the active fixes, latest positions and tracks as WGS 84
// feature collections. Property names stay within 10 characters so they
// survive conversion to shapefile attributes.
type GeoJSON struct{}

func (GeoJSON) Name() string { return "geojson" }

func (GeoJSON) Artifacts() []string {
	return []string{PointsGeoJSON, LatestGeoJSON, TracksGeoJSON}
}

func (GeoJSON) Emit(ctx context.Context, dir string, ds *Dataset) error {
	layers := BuildLayers(ds)
	for _, name := range []string{PointsGeoJSON, LatestGeoJSON, TracksGeoJSON} {
		if err := writeFeatureCollection(filepath.Join(dir, name), layers[name]); err != nil {
			return &OutputWriteError{Artifact: name, Err: err}
		}
	}
	return nil
}

// BuildLayers returns the three vector layers keyed by GeoJSON file name.
func BuildLayers(ds *Dataset) map[string]*geojson.FeatureCollection {
	points := geojson.NewFeatureCollection()
	for _, tr := range ds.Activity.Tracks {
		for _, f := range tr.Fixes {
			points.Append(pointFeature(f))
		}
	}

	latest := geojson.NewFeatureCollection()
	for _, s := range ds.Activity.Active {
		latest.Append(pointFeature(s.Latest))
	}

	tracks := geojson.NewFeatureCollection()
	for _, tr := range ds.Activity.Tracks {
		if len(tr.Fixes) == 0 {
			continue
		}
		tracks.Append(trackFeature(tr))
	}

	return map[string]*geojson.FeatureCollection{
		PointsGeoJSON: points,
		LatestGeoJSON: latest,
		TracksGeoJSON: tracks,
	}
}

func pointFeature(f models.Fix) *geojson.Feature {
	feat := geojson.NewFeature(orb.Point{f.Longitude, f.Latitude})
	feat.Properties["buoy_id"] = f.BuoyID
	feat.Properties["timestamp"] = formatTime(f.Timestamp)
	if f.SpeedKn != nil {
		feat.Properties["speed_kn"] = *f.SpeedKn
	}
	if f.CourseDeg != nil {
		feat.Properties["course_deg"] = *f.CourseDeg
	}
	feat.Properties["in_deploy"] = f.InDeploymentZone
	feat.Properties["in_oper"] = f.InOperationalZone
	feat.Properties["in_area"] = f.InAnyZone()
	return feat
}

// A single-fix track repeats its only position so every track is a line.
func trackFeature(tr models.Track) *geojson.Feature {
	line := make(orb.LineString, 0, len(tr.Fixes)+1)
	path := make([]spatial.Point, 0, len(tr.Fixes))
	for _, f := range tr.Fixes {
		line = append(line, orb.Point{f.Longitude, f.Latitude})
		path = append(path, spatial.Point{Lat: f.Latitude, Lon: f.Longitude})
	}
	if len(line) == 1 {
		line = append(line, line[0])
	}

	feat := geojson.NewFeature(line)
	feat.Properties["buoy_id"] = tr.BuoyID
	feat.Properties["start_time"] = formatTime(tr.Start())
	feat.Properties["end_time"] = formatTime(tr.End())
	feat.Properties["n_points"] = len(tr.Fixes)
	feat.Properties["length_km"] = math.Round(spatial.PathLengthKm(path)*1000) / 1000
	return feat
}

func writeFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
