package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "archive.db")

	db, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	db.Close()

	// second open must skip the applied migration
	db, err = Open(Config{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 recorded migration, got %d", count)
	}

	if _, err := db.Exec("SELECT buoy_id, ts FROM fixes LIMIT 1"); err != nil {
		t.Errorf("fixes table missing: %v", err)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "tx.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	err = Transaction(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO fixes (buoy_id, ts, latitude, longitude, seq, ingested_at)
			VALUES ('B1', 1, 0, 0, 0, 'x')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction error = %v, want boom", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM fixes").Scan(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d rows", count)
	}
}
