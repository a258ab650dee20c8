package export

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
)

// Shapefile archives
const (
	PointsShapefileZip = "all_points_shapefile.zip"
	LatestShapefileZip = "latest_pos_shapefile.zip"
	TracksShapefileZip = "tracks_shapefile.zip"
)

var shapefileParts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// VectorConverter turns a GeoJSON file into an ESRI shapefile. Supported is
// the capability query; Convert is only called when it returns true.
type VectorConverter interface {
	Supported() bool
	Convert(ctx context.Context, src, dstShp string) error
}

// Ogr2ogr converts through the GDAL command line tool
type Ogr2ogr struct {
	Binary string
}

// Supported reports whether the binary is on PATH
func (o Ogr2ogr) Supported() bool {
	_, err := exec.LookPath(o.binary())
	return err == nil
}

func (o Ogr2ogr) Convert(ctx context.Context, src, dstShp string) error {
	cmd := exec.CommandContext(ctx, o.binary(),
		"-f", "ESRI Shapefile",
		"-lco", "ENCODING=UTF-8",
		dstShp, src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", o.binary(), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (o Ogr2ogr) binary() string {
	if o.Binary == "" {
		return "ogr2ogr"
	}
	return o.Binary
}

// Shapefiles writes zipped shapefiles of the vector layers. Without a
// supported converter it removes zips left by earlier runs and reports
// ErrCapabilityUnavailable.
type Shapefiles struct {
	Converter VectorConverter
}

func (Shapefiles) Name() string { return "shapefiles" }

func (Shapefiles) Artifacts() []string {
	return []string{PointsShapefileZip, LatestShapefileZip, TracksShapefileZip}
}

func (s Shapefiles) Emit(ctx context.Context, dir string, ds *Dataset) error {
	if s.Converter == nil || !s.Converter.Supported() {
		if err := Remove(dir, s); err != nil {
			return err
		}
		return fmt.Errorf("shapefile conversion: %w", ErrCapabilityUnavailable)
	}

	work, err := os.MkdirTemp("", "fad-shp-*")
	if err != nil {
		return &OutputWriteError{Artifact: "shapefiles", Err: err}
	}
	defer os.RemoveAll(work)

	layers := BuildLayers(ds)
	jobs := []struct {
		geojson, base, zip string
	}{
		{PointsGeoJSON, "all_points", PointsShapefileZip},
		{LatestGeoJSON, "latest_pos", LatestShapefileZip},
		{TracksGeoJSON, "tracks", TracksShapefileZip},
	}

	var errs []error
	for _, job := range jobs {
		src := filepath.Join(work, job.geojson)
		if err := writeFeatureCollection(src, layers[job.geojson]); err != nil {
			errs = append(errs, &OutputWriteError{Artifact: job.zip, Err: err})
			continue
		}
		shp := filepath.Join(work, job.base+".shp")
		if err := s.Converter.Convert(ctx, src, shp); err != nil {
			errs = append(errs, &OutputWriteError{Artifact: job.zip, Err: err})
			continue
		}
		if err := zipShapefile(filepath.Join(dir, job.zip), filepath.Join(work, job.base), ds); err != nil {
			errs = append(errs, &OutputWriteError{Artifact: job.zip, Err: err})
		}
	}
	return errors.Join(errs...)
}

// zipShapefile packs the sidecar files of base into dst. Entry times are the
// run's reference time so identical runs give identical archives.
func zipShapefile(dst, base string, ds *Dataset) error {
	return fsutil.WriteFileAtomic(dst, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, ext := range shapefileParts {
			path := base + ext
			data, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return err
			}
			hdr := &zip.FileHeader{
				Name:     filepath.Base(path),
				Method:   zip.Deflate,
				Modified: ds.Now.UTC(),
			}
			fw, err := zw.CreateHeader(hdr)
			if err != nil {
				return err
			}
			if _, err := fw.Write(data); err != nil {
				return err
			}
		}
		return zw.Close()
	})
}
