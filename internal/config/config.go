package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rdallagnolo/repo-fad-tracking/internal/repository"
)

// Config holds everything one pipeline run (and the viewer) needs
type Config struct {
	InDir          string
	Glob           string
	OutDir         string
	DeploymentCSV  string
	OperationalCSV string
	ActiveDays     int
	Timezone       string

	ArchiveBackend string
	ArchivePath    string
	ArchiveLock    bool

	Vector  bool
	Ogr2ogr string

	// serve
	Port      string
	JWTSecret string
	Schedule  string
}

// Load reads configuration from environment variables, after loading an
// optional .env file
func Load() *Config {
	_ = godotenv.Load()

	backend := NormalizeBackend(getEnv("FAD_ARCHIVE_BACKEND", repository.BackendCSV))
	archivePath := os.Getenv("FAD_ARCHIVE_PATH")
	if archivePath == "" {
		archivePath = DefaultArchivePath(backend)
	}

	return &Config{
		InDir:          getEnv("FAD_IN_DIR", "."),
		Glob:           getEnv("FAD_GLOB", "buoys*.csv"),
		OutDir:         getEnv("FAD_OUT_DIR", "fad_tracks_output"),
		DeploymentCSV:  getEnv("FAD_DEPLOYMENT_CSV", "deployment-area.csv"),
		OperationalCSV: getEnv("FAD_OPERATIONAL_CSV", "operational-area.csv"),
		ActiveDays:     getEnvInt("FAD_ACTIVE_DAYS", 7),
		Timezone:       getEnv("FAD_TIMEZONE", "UTC"),
		ArchiveBackend: backend,
		ArchivePath:    archivePath,
		ArchiveLock:    getEnvBool("FAD_ARCHIVE_LOCK", true),
		Vector:         getEnvBool("FAD_VECTOR", true),
		Ogr2ogr:        getEnv("FAD_OGR2OGR", "ogr2ogr"),
		Port:           getEnv("PORT", ":8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Schedule:       os.Getenv("FAD_SCHEDULE"),
	}
}

// NormalizeBackend folds a backend name given on the command line or in the
// environment.
func NormalizeBackend(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultArchivePath returns the archive location used when none is configured.
func DefaultArchivePath(backend string) string {
	if backend == repository.BackendSQLite {
		return filepath.Join("archive", "fad_archive.db")
	}
	return filepath.Join("archive", "fad_archive.csv")
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.ActiveDays <= 0 {
		return fmt.Errorf("active days must be positive, got %d", c.ActiveDays)
	}
	if c.ArchiveBackend != repository.BackendCSV && c.ArchiveBackend != repository.BackendSQLite {
		return fmt.Errorf("unknown archive backend %q (want %s or %s)", c.ArchiveBackend, repository.BackendCSV, repository.BackendSQLite)
	}
	if c.ArchivePath == "" {
		return fmt.Errorf("archive path is required")
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Threshold is the staleness threshold
func (c *Config) Threshold() time.Duration {
	return time.Duration(c.ActiveDays) * 24 * time.Hour
}

// Location resolves the timezone batch timestamps are written in
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ZonePath resolves a zone file name against the input directory.
func (c *Config) ZonePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.InDir, name)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Validate reports it
		return -1
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
