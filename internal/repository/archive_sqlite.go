package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/rdallagnolo/repo-fad-tracking/internal/database"
	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
)

// corruptRow matches the rows Load drops.
const corruptRow = `latitude NOT BETWEEN -90 AND 90 OR longitude NOT BETWEEN -180 AND 180`

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// SQLiteArchive keeps the archive in the fixes table. The (buoy_id, ts)
// primary key enforces uniqueness at the storage layer too.
type SQLiteArchive struct {
	db   *sql.DB
	path string
}

// OpenSQLiteArchive opens (and migrates) the archive database at path
func OpenSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		return nil, &ArchiveIOError{Op: "open", Path: path, Err: err}
	}
	return &SQLiteArchive{db: db, path: path}, nil
}

func (a *SQLiteArchive) Path() string { return a.path }

func (a *SQLiteArchive) Close() error { return a.db.Close() }

// Load reads every archived fix in insertion order
func (a *SQLiteArchive) Load(ctx context.Context) ([]models.Fix, []models.RejectedRow, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT buoy_id, ts, latitude, longitude, speed_kn, course_deg
		FROM fixes ORDER BY seq, buoy_id, ts`)
	if err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}
	defer rows.Close()

	var fixes []models.Fix
	var dropped []models.RejectedRow
	for rows.Next() {
		var (
			f             models.Fix
			ts            int64
			speed, course sql.NullFloat64
		)
		if err := rows.Scan(&f.BuoyID, &ts, &f.Latitude, &f.Longitude, &speed, &course); err != nil {
			return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
		}
		if f.Latitude < -90 || f.Latitude > 90 || f.Longitude < -180 || f.Longitude > 180 {
			d := models.RejectedRow{Source: "fixes", BuoyID: f.BuoyID, Reason: fmt.Sprintf("coordinate out of range (%v, %v)", f.Latitude, f.Longitude)}
			log.Printf("[warning] archive %s row dropped: %s", a.path, d.Reason)
			dropped = append(dropped, d)
			continue
		}
		f.Timestamp = time.Unix(ts, 0).UTC()
		if speed.Valid {
			v := speed.Float64
			f.SpeedKn = &v
		}
		if course.Valid {
			v := course.Float64
			f.CourseDeg = &v
		}
		f.Seq = len(fixes)
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, &ArchiveIOError{Op: "read", Path: a.path, Err: err}
	}
	return fixes, dropped, nil
}

// Save inserts the newly added fixes after the last stored seq. Rows that
// Load drops as corrupt are deleted in the same transaction so their keys
// cannot shadow a valid incoming fix. Valid rows are never rewritten.
func (a *SQLiteArchive) Save(ctx context.Context, all, added []models.Fix) error {
	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	err := database.Transaction(ctx, a.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fixes WHERE `+corruptRow); err != nil {
			return fmt.Errorf("delete corrupt rows: %w", err)
		}
		if len(added) == 0 {
			return nil
		}

		var next int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM fixes`).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO fixes
			(buoy_id, ts, latitude, longitude, speed_kn, course_deg, seq, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, f := range added {
			if _, err := stmt.ExecContext(ctx, f.BuoyID, f.Timestamp.UTC().Unix(), f.Latitude, f.Longitude,
				nullFloat(f.SpeedKn), nullFloat(f.CourseDeg), next+i, ingestedAt); err != nil {
				return fmt.Errorf("insert %s@%s: %w", f.BuoyID, f.Timestamp.Format(time.RFC3339), err)
			}
		}
		return nil
	})
	if err != nil {
		return &ArchiveIOError{Op: "write", Path: a.path, Err: err}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
