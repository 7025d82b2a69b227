// Package store persists users, account requests, and transcripts in
// SQLite via GORM. Schema changes are additive only: new nullable
// columns through AutoMigrate, never destructive rewrites.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
)

// Store wraps the GORM handle with the service's query surface.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects to the SQLite database, configures the pool, and runs
// auto-migration for all models.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()

	gormCfg := &gorm.Config{
		Logger: newGormLogger(log, parseLogLevel(cfg.LogLevel)),
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	s := &Store{db: db, log: log.WithComponent("store")}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	s.log.Info("Database ready", map[string]interface{}{"path": cfg.Path})
	return s, nil
}

var memoryDBSeq atomic.Int64

// OpenInMemory opens a throwaway in-memory database. Test helper. Each
// call gets its own database; the shared cache only ties together the
// pool connections of one Store.
func OpenInMemory(log *logger.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memoryDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(log, gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	s := &Store{db: db, log: log.WithComponent("store")}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	for _, model := range []interface{}{&User{}, &AccountRequest{}, &Transcript{}} {
		if err := s.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// --- GORM logger adapter ---

func parseLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

type gormLoggerAdapter struct {
	log      *logger.Logger
	logLevel gormlogger.LogLevel
}

func newGormLogger(log *logger.Logger, logLevel gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{log: log.WithComponent("gorm"), logLevel: logLevel}
}

func (l *gormLoggerAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &gormLoggerAdapter{log: l.log, logLevel: level}
}

func (l *gormLoggerAdapter) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Info {
		l.log.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= gormlogger.Error {
		l.log.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && err != gorm.ErrRecordNotFound:
		l.log.Error("Query error", map[string]interface{}{
			"sql": sql, "duration": elapsed.String(), "rows": rows, "error": err.Error(),
		})
	case l.logLevel >= gormlogger.Info:
		l.log.Debug("Query", map[string]interface{}{
			"sql": sql, "duration": elapsed.String(), "rows": rows,
		})
	}
}
