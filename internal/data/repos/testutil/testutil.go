package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/budgetvault-backend/internal/data/db"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database shared by the package's tests. It uses
// TEST_POSTGRES_DSN when set and a throwaway sqlite file otherwise.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			db, dbErr = openPostgres(dsn)
			return
		}
		db, dbErr = openSQLite(Logger(tb))
	})

	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func openPostgres(dsn string) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := dbpkg.AutoMigrateAll(conn); err != nil {
		return nil, err
	}
	if err := dbpkg.EnsureSnapshotGuards(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// The directory outlives individual tests, so it is not tied to tb.TempDir.
func openSQLite(log *logger.Logger) (*gorm.DB, error) {
	dir, err := os.MkdirTemp("", "budgetvault-repo-test-")
	if err != nil {
		return nil, err
	}
	svc, err := dbpkg.Open(log, dbpkg.Config{
		Driver:     dbpkg.DriverSQLite,
		SQLitePath: filepath.Join(dir, "repo_test.db"),
	})
	if err != nil {
		return nil, err
	}
	if err := svc.AutoMigrateAll(); err != nil {
		return nil, err
	}
	return svc.DB(), nil
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
