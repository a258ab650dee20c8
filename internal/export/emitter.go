// Package export renders a run's archive and buoy activity into the output
// artifacts. Every emitter is deterministic and writes its files atomically.
package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/service"
)

// ErrCapabilityUnavailable is returned by an emitter whose optional
// tooling is missing. The artifact is skipped, the run is not failed.
var ErrCapabilityUnavailable = errors.New("optional capability unavailable")

// OutputWriteError reports one artifact that could not be written
type OutputWriteError struct {
	Artifact string
	Err      error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Artifact, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// Dataset is everything the emitters render
type Dataset struct {
	Now      time.Time
	Archive  []models.Fix // classified, insertion order
	Activity service.Activity
	Rejected []models.RejectedRow
	Summary  *models.RunSummary
}

// Emitter writes one artifact family into dir
type Emitter interface {
	Name() string
	Artifacts() []string
	Emit(ctx context.Context, dir string, ds *Dataset) error
}

// Report lists what EmitAll produced
type Report struct {
	Written  []string
	Skipped  []string
	Failures []error
}

// EmitAll runs every emitter. A failing emitter is recorded and the rest
// still run.
func EmitAll(ctx context.Context, dir string, ds *Dataset, emitters []Emitter) Report {
	var rep Report
	for _, e := range emitters {
		err := e.Emit(ctx, dir, ds)
		switch {
		case err == nil:
			rep.Written = append(rep.Written, e.Artifacts()...)
		case errors.Is(err, ErrCapabilityUnavailable):
			log.Printf("[info] %s skipped: %v", e.Name(), err)
			rep.Skipped = append(rep.Skipped, e.Artifacts()...)
		default:
			var werr *OutputWriteError
			if !errors.As(err, &werr) {
				err = &OutputWriteError{Artifact: e.Name(), Err: err}
			}
			log.Printf("[warning] %v", err)
			rep.Failures = append(rep.Failures, err)
		}
	}
	return rep
}

// DefaultEmitters returns the always-on artifacts in write order.
func DefaultEmitters() []Emitter {
	return []Emitter{
		ArchiveTable{},
		LatestTable{},
		InactiveTable{},
		RejectedTable{},
		LatestKML{},
		TracksKML{},
	}
}

// VectorEmitters returns the optional GIS artifacts.
func VectorEmitters(conv VectorConverter) []Emitter {
	return []Emitter{GeoJSON{}, Shapefiles{Converter: conv}}
}

// Remove deletes the artifacts of emitters left in dir by an earlier run.
func Remove(dir string, emitters ...Emitter) error {
	for _, e := range emitters {
		for _, name := range e.Artifacts() {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return &OutputWriteError{Artifact: name, Err: err}
			}
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
