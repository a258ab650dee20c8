package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/api"
	"github.com/rdallagnolo/repo-fad-tracking/internal/config"
	"github.com/rdallagnolo/repo-fad-tracking/internal/middleware"
	"github.com/rdallagnolo/repo-fad-tracking/internal/pipeline"
	"github.com/rdallagnolo/repo-fad-tracking/internal/scheduler"
)

// Exit codes
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

const usage = `Usage: fadtracks <command> [flags]

Commands:
  run     ingest new fix batches, update the archive and write all outputs
  serve   serve the outputs and a JSON API, optionally running on a schedule
  token   print a bearer token for the API (needs JWT_SECRET)

Run "fadtracks <command> -h" for the flags of a command.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cfg := config.Load()
	switch args[0] {
	case "run":
		return runOnce(cfg, args[1:], stdout, stderr)
	case "serve":
		return serve(cfg, args[1:], stderr)
	case "token":
		return token(cfg, args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return exitUsage
	}
}

// pipelineFlags registers the flags shared by run and serve; values default
// to the environment configuration.
func pipelineFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.InDir, "in-dir", cfg.InDir, "directory holding fix batches and zone files")
	fs.StringVar(&cfg.Glob, "glob", cfg.Glob, "fix batch file pattern")
	fs.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "output directory")
	fs.StringVar(&cfg.DeploymentCSV, "deployment-csv", cfg.DeploymentCSV, "deployment zone vertices")
	fs.StringVar(&cfg.OperationalCSV, "operational-csv", cfg.OperationalCSV, "operational zone vertices")
	fs.IntVar(&cfg.ActiveDays, "active-days", cfg.ActiveDays, "days without a fix before a buoy is inactive")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "timezone of batch timestamps")
	fs.StringVar(&cfg.ArchiveBackend, "archive-backend", cfg.ArchiveBackend, "archive backend: csv or sqlite")
	fs.StringVar(&cfg.ArchivePath, "archive", cfg.ArchivePath, "archive location")
	fs.BoolVar(&cfg.ArchiveLock, "lock", cfg.ArchiveLock, "hold an exclusive lock file during the archive update")
	fs.BoolVar(&cfg.Vector, "vector", cfg.Vector, "write GeoJSON and, when ogr2ogr is found, shapefiles")
	fs.StringVar(&cfg.Ogr2ogr, "ogr2ogr", cfg.Ogr2ogr, "ogr2ogr binary")
}

func parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		return exitUsage, false
	}
	return exitOK, true
}

func runOnce(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := cfg.ArchiveBackend
	pipelineFlags(fs, cfg)
	if code, ok := parse(fs, args); !ok {
		return code
	}
	defaultArchive(cfg, backend)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Printf("configuration error: %v", err)
		return exitFatal
	}

	res, err := pipeline.NewPipeline(opts).Run(context.Background())
	if err != nil {
		log.Printf("run failed: %v", err)
		return exitFatal
	}

	s := res.Summary
	fmt.Fprintf(stdout, "Fixes ingested: %d (rejected rows: %d)\n", s.FixesIngested, s.RowsRejected)
	fmt.Fprintf(stdout, "Newly archived: %d (archive size: %d)\n", s.NewlyArchived, s.ArchiveSize)
	fmt.Fprintf(stdout, "Active buoys: %d, inactive buoys: %d\n", s.ActiveBuoys, s.InactiveBuoys)
	for _, w := range s.Warnings {
		fmt.Fprintf(stdout, "Warning: %s\n", w)
	}
	return exitOK
}

func serve(cfg *config.Config, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := cfg.ArchiveBackend
	pipelineFlags(fs, cfg)
	fs.StringVar(&cfg.Port, "addr", cfg.Port, "listen address")
	fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "cron spec for scheduled runs (empty: none)")
	runFirst := fs.Bool("run", true, "run the pipeline once at startup")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	defaultArchive(cfg, backend)

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Printf("configuration error: %v", err)
		return exitFatal
	}
	runner := pipeline.NewRunner(opts)

	if *runFirst {
		if _, err := runner.Run(context.Background()); err != nil {
			log.Printf("[warning] initial run failed: %v", err)
		}
	}

	if cfg.Schedule != "" {
		sched, err := scheduler.New(cfg.Schedule, runner)
		if err != nil {
			log.Printf("configuration error: %v", err)
			return exitFatal
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("Scheduled runs: %s", cfg.Schedule)
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           api.SetupRouter(cfg, runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Port)
		errc <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server failed: %v", err)
			return exitFatal
		}
	case <-stop:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("[warning] shutdown: %v", err)
		}
	}
	return exitOK
}

func token(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("sub", "viewer", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if code, ok := parse(fs, args); !ok {
		return code
	}

	tok, err := middleware.IssueToken(cfg.JWTSecret, *subject, *ttl)
	if err != nil {
		log.Printf("token: %v", err)
		return exitFatal
	}
	fmt.Fprintln(stdout, tok)
	return exitOK
}

// defaultArchive normalizes the backend flag and follows a backend switched
// by flag when the archive path was not set explicitly.
func defaultArchive(cfg *config.Config, envBackend string) {
	cfg.ArchiveBackend = config.NormalizeBackend(cfg.ArchiveBackend)
	if cfg.ArchiveBackend != envBackend && cfg.ArchivePath == config.DefaultArchivePath(envBackend) {
		cfg.ArchivePath = config.DefaultArchivePath(cfg.ArchiveBackend)
	}
}
