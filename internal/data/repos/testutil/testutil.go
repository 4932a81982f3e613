package testutil

import (
	"path/filepath"
	"sync"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	dbpkg "github.com/yungbote/eduvideo-backend/internal/data/db"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

var (
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

// DB opens a fresh migrated SQLite database for the calling test.
// The pool holds a single connection, so code under test must route every
// statement inside a transaction through that transaction.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "test.db")
	db, err := gorm.Open(gormsqlite.Open(path+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := dbpkg.AutoMigrateAll(db); err != nil {
		tb.Fatalf("auto migrate: %v", err)
	}
	if err := dbpkg.EnsureIndexes(db); err != nil {
		tb.Fatalf("ensure indexes: %v", err)
	}
	return db
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
