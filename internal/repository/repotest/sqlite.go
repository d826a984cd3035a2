// Package repotest provides a migrated in-memory database for tests.
package repotest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/pkg/database"
)

var seq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema,
// including the partial unique index on appointment slots. The database is
// closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	// A single connection keeps every statement on the same in-memory database.
	dsn := fmt.Sprintf("file:clinicflow_test_%d?mode=memory&cache=shared", seq.Add(1))
	return open(t, dsn, 1)
}

// NewSeededDB is NewDB plus the reference catalog and doctors.
func NewSeededDB(t testing.TB) *gorm.DB {
	t.Helper()

	db := NewDB(t)
	seed(t, db)
	return db
}

// NewConcurrentDB opens a seeded, file backed database with conns pooled
// connections. Writers on different connections race for SQLite's write lock
// and the unique index, which the single connection of NewDB never lets happen.
func NewConcurrentDB(t testing.TB, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clinicflow.db")
	db := open(t, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)", conns)
	seed(t, db)
	return db
}

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(dsn), zap.NewNop(), 0, nil)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db, zap.NewNop()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func seed(t testing.TB, db *gorm.DB) {
	t.Helper()
	if err := database.Seed(t.Context(), db, zap.NewNop()); err != nil {
		t.Fatalf("seeding: %v", err)
	}
}
