package repository

import (
	"errors"
	"fmt"
	"os"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
)

// ErrZoneSourceMissing marks a zone whose source file does not exist. The
// zone is simply disabled.
var ErrZoneSourceMissing = errors.New("zone source not found")

// ZoneLoadError reports an unusable zone source. The zone is disabled and
// the run continues.
type ZoneLoadError struct {
	Zone string
	Path string
	Err  error
}

func (e *ZoneLoadError) Error() string {
	return fmt.Sprintf("zone %s (%s): %v", e.Zone, e.Path, e.Err)
}

func (e *ZoneLoadError) Unwrap() error { return e.Err }

var zoneSchema = columnSchema{
	"lat": {"lat", "latitude"},
	"lon": {"long", "lon", "longitude", "lng"},
}

// ZoneRepository loads polygon zones from vertex tables
type ZoneRepository struct{}

// NewZoneRepository creates a new zone repository
func NewZoneRepository() *ZoneRepository {
	return &ZoneRepository{}
}

// LoadZone reads one zone. Vertices keep their file order and the ring is
// closed when the last vertex differs from the first. Any unparseable
// coordinate or fewer than 3 distinct vertices makes the whole zone unusable.
func (r *ZoneRepository) LoadZone(name, path string) (*models.Zone, error) {
	fail := func(err error) (*models.Zone, error) {
		return nil, &ZoneLoadError{Zone: name, Path: path, Err: err}
	}

	if path == "" {
		return fail(ErrZoneSourceMissing)
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fail(ErrZoneSourceMissing)
	}
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	t, err := readTable(f)
	if err != nil {
		return fail(err)
	}
	if len(t.badRows) > 0 {
		return fail(fmt.Errorf("line %d: %s", t.badRows[0].line, t.badRows[0].reason))
	}
	cols, err := t.columns(zoneSchema, "lat", "lon")
	if err != nil {
		return fail(err)
	}

	ring := make([]spatial.Point, 0, len(t.rows)+1)
	for i, rec := range t.rows {
		lat, err := spatial.ParseLatitude(field(rec, cols, "lat"))
		if err != nil {
			return fail(fmt.Errorf("line %d: %w", t.lines[i], err))
		}
		lon, err := spatial.ParseLongitude(field(rec, cols, "lon"))
		if err != nil {
			return fail(fmt.Errorf("line %d: %w", t.lines[i], err))
		}
		ring = append(ring, spatial.Point{Lat: lat, Lon: lon})
	}

	if n := spatial.DistinctVertices(ring); n < 3 {
		return fail(fmt.Errorf("need at least 3 distinct vertices, got %d", n))
	}

	return &models.Zone{
		Name:     name,
		Source:   path,
		Vertices: spatial.CloseRing(ring),
	}, nil
}
