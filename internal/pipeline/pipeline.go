// Package pipeline runs one reconcile-and-render cycle over the fix batches
// in the input directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rdallagnolo/repo-fad-tracking/internal/config"
	"github.com/rdallagnolo/repo-fad-tracking/internal/export"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/repository"
	"github.com/rdallagnolo/repo-fad-tracking/internal/service"
)

// Options configures a pipeline
type Options struct {
	InDir           string
	Glob            string
	OutDir          string
	DeploymentPath  string
	OperationalPath string
	Threshold       time.Duration
	Location        *time.Location

	ArchiveBackend string
	ArchivePath    string
	Lock           bool

	Vector    bool
	Converter export.VectorConverter

	// Now returns the run's reference time; time.Now when nil
	Now func() time.Time
}

// OptionsFromConfig validates cfg and maps it to pipeline options
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		InDir:           cfg.InDir,
		Glob:            cfg.Glob,
		OutDir:          cfg.OutDir,
		DeploymentPath:  cfg.ZonePath(cfg.DeploymentCSV),
		OperationalPath: cfg.ZonePath(cfg.OperationalCSV),
		Threshold:       cfg.Threshold(),
		Location:        loc,
		ArchiveBackend:  cfg.ArchiveBackend,
		ArchivePath:     cfg.ArchivePath,
		Lock:            cfg.ArchiveLock,
		Vector:          cfg.Vector,
		Converter:       export.Ogr2ogr{Binary: cfg.Ogr2ogr},
	}, nil
}

// Result is the outcome of one run
type Result struct {
	Summary  models.RunSummary
	Archive  []models.Fix
	Activity service.Activity
	Zones    []*models.Zone
}

// Pipeline wires the stages of a run together
type Pipeline struct {
	opts     Options
	fixes    *repository.FixRepository
	zones    *repository.ZoneRepository
	resolver *service.ActivityResolver
}

// NewPipeline creates a pipeline instance
func NewPipeline(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		opts:     opts,
		fixes:    repository.NewFixRepository(opts.Location),
		zones:    repository.NewZoneRepository(),
		resolver: service.NewActivityResolver(opts.Threshold),
	}
}

// Run executes one cycle. Row, zone and artifact problems become warnings in
// the summary; only archive and lock failures are returned as errors.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	now := p.opts.Now().UTC()
	res := &Result{Summary: models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
		Now:       now,
	}}
	sum := &res.Summary
	log.Printf("--- Starting run %s (now=%s) ---", sum.RunID, now.Format(time.RFC3339))

	// 1. Zones
	log.Println("1. Loading zones...")
	var deployment, operational *models.Zone
	for _, z := range []struct {
		name string
		path string
		dst  **models.Zone
	}{
		{models.ZoneDeployment, p.opts.DeploymentPath, &deployment},
		{models.ZoneOperational, p.opts.OperationalPath, &operational},
	} {
		zone, err := p.zones.LoadZone(z.name, z.path)
		if err != nil {
			level := "warning"
			if errors.Is(err, repository.ErrZoneSourceMissing) {
				level = "info"
			}
			log.Printf("[%s] %v; zone disabled", level, err)
			sum.Warnings = append(sum.Warnings, err.Error())
			continue
		}
		*z.dst = zone
		res.Zones = append(res.Zones, zone)
		sum.ZonesLoaded = append(sum.ZonesLoaded, zone.Name)
	}
	log.Printf("   -> %d zone(s) loaded", len(res.Zones))

	// 2. Ingest
	log.Println("2. Ingesting fix batches...")
	files, err := p.fixes.Discover(p.opts.InDir, p.opts.Glob)
	if err != nil {
		return res, err
	}
	ingest := p.fixes.IngestFiles(files)
	sum.BatchFiles = files
	sum.FixesIngested = len(ingest.Fixes)
	sum.RowsRejected = len(ingest.Rejected)
	for _, r := range ingest.Rejected {
		log.Printf("[warning] %s line %d rejected: %s", r.Source, r.Line, r.Reason)
	}
	log.Printf("   -> %d file(s), %d fix(es), %d rejected row(s)", len(files), len(ingest.Fixes), len(ingest.Rejected))

	// 3. Read, merge and write the archive
	log.Println("3. Reconciling archive...")
	archive, err := p.reconcile(ctx, ingest.Fixes, sum)
	if err != nil {
		return res, err
	}
	log.Printf("   -> %d new, %d duplicate, archive now %d", sum.NewlyArchived, sum.DuplicateFixes, sum.ArchiveSize)

	// 4. Classify
	log.Println("4. Classifying fixes against zones...")
	res.Archive = service.NewZoneClassifier(deployment, operational).Classify(archive)

	// 5. Activity
	log.Println("5. Resolving buoy activity...")
	res.Activity = p.resolver.Resolve(res.Archive, now)
	sum.ActiveBuoys = len(res.Activity.Active)
	sum.InactiveBuoys = len(res.Activity.Inactive)
	sum.Anomalies = len(res.Activity.Anomalies)
	for _, a := range res.Activity.Anomalies {
		log.Printf("[warning] buoy %s at %s: %s", a.BuoyID, a.Timestamp.Format(time.RFC3339), a.Detail)
	}
	log.Printf("   -> %d active, %d inactive", sum.ActiveBuoys, sum.InactiveBuoys)

	// 6. Emit
	log.Println("6. Writing outputs...")
	p.emit(ctx, res, ingest.Rejected)
	log.Printf("   -> %d artifact(s) written to %s", len(sum.Artifacts), p.opts.OutDir)

	log.Printf("--- Run %s completed in %v ---", sum.RunID, time.Since(started).Round(time.Millisecond))
	return res, nil
}

// reconcile is the locked read-merge-write cycle.
func (p *Pipeline) reconcile(ctx context.Context, incoming []models.Fix, sum *models.RunSummary) ([]models.Fix, error) {
	if p.opts.Lock {
		lock, err := repository.AcquireLock(p.opts.ArchivePath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Printf("[warning] %v", err)
			}
		}()
	}

	store, err := repository.OpenArchive(p.opts.ArchiveBackend, p.opts.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	existing, dropped, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	sum.ArchiveDropped = len(dropped)
	if len(dropped) > 0 {
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("%d corrupt archive row(s) dropped", len(dropped)))
	}

	merged := service.Reconcile(existing, incoming)
	// dropped rows must leave the stored archive too, so a csv store is
	// rewritten whenever it had any
	if len(merged.Added) > 0 || len(dropped) > 0 {
		if err := store.Save(ctx, merged.Archive, merged.Added); err != nil {
			return nil, err
		}
	}

	sum.NewlyArchived = len(merged.Added)
	sum.DuplicateFixes = merged.Duplicates
	sum.ArchiveSize = len(merged.Archive)
	return merged.Archive, nil
}

func (p *Pipeline) emit(ctx context.Context, res *Result, rejected []models.RejectedRow) {
	sum := &res.Summary
	if err := os.MkdirAll(p.opts.OutDir, 0o755); err != nil {
		log.Printf("[warning] create output directory: %v", err)
	}

	ds := &export.Dataset{
		Now:      sum.Now,
		Archive:  res.Archive,
		Activity: res.Activity,
		Rejected: rejected,
		Summary:  sum,
	}

	emitters := export.DefaultEmitters()
	vector := export.VectorEmitters(p.opts.Converter)
	if p.opts.Vector {
		emitters = append(emitters, vector...)
	} else if err := export.Remove(p.opts.OutDir, vector...); err != nil {
		log.Printf("[warning] %v", err)
		sum.Warnings = append(sum.Warnings, err.Error())
	}

	rep := export.EmitAll(ctx, p.opts.OutDir, ds, emitters)
	sum.Artifacts = rep.Written
	sum.SkippedArtifacts = rep.Skipped
	for _, err := range rep.Failures {
		sum.Warnings = append(sum.Warnings, err.Error())
	}

	sum.FinishedAt = time.Now().UTC()
	sum.Artifacts = append(sum.Artifacts, export.SummaryFile)
	final := export.EmitAll(ctx, p.opts.OutDir, ds, []export.Emitter{export.RunSummary{}})
	if len(final.Failures) > 0 {
		sum.Artifacts = sum.Artifacts[:len(sum.Artifacts)-1]
		for _, err := range final.Failures {
			sum.Warnings = append(sum.Warnings, err.Error())
		}
	}
}
