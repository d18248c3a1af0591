package testutil

import (
	"context"
	"database/sql"
	"recipes-backend/internal/components/chrono"
	"recipes-backend/lib/configutil/dbconfig"
	"testing"
	"time"
)

// SetupDB opens a private in-memory sqlite database with the schema applied,
// it is closed when the test ends.
func SetupDB(t testing.TB, schema string) *sql.DB {
	t.Helper()
	db, err := dbconfig.Config{File: ":memory:"}.Open(context.Background(), schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// Clock returns a manual clock starting at a fixed instant.
func Clock() *chrono.ManualTime {
	return chrono.NewManualTime(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
}
