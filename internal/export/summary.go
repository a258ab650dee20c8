package export

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/rdallagnolo/repo-fad-tracking/internal/fsutil"
)

// SummaryFile is the run summary artifact
const SummaryFile = "run_summary.json"

// RunSummary writes the run's counts and warnings as JSON
type RunSummary struct{}

func (RunSummary) Name() string        { return "run summary" }
func (RunSummary) Artifacts() []string { return []string{SummaryFile} }

func (RunSummary) Emit(ctx context.Context, dir string, ds *Dataset) error {
	if ds.Summary == nil {
		return nil
	}
	data, err := json.MarshalIndent(ds.Summary, "", "  ")
	if err != nil {
		return &OutputWriteError{Artifact: SummaryFile, Err: err}
	}
	err = fsutil.WriteFileAtomic(filepath.Join(dir, SummaryFile), func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		_, err := w.Write([]byte("\n"))
		return err
	})
	if err != nil {
		return &OutputWriteError{Artifact: SummaryFile, Err: err}
	}
	return nil
}
