package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "silent", "":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	}
	return LogLevelInfo
}

func (l LogLevel) gorm() logger.LogLevel {
	switch l {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	case LogLevelSilent:
		return logger.Silent
	}
	return logger.Info
}

// OpenDatabase connects gorm to one of the supported drivers: mysql,
// postgres or sqlite. For sqlite the dsn is a file path or ":memory:".
func OpenDatabase(driver, dsn string, maxConnection int, level LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
		// a single connection keeps an in-memory database alive and
		// serializes writers
		maxConnection = 1
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level.gorm()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if maxConnection <= 0 {
		maxConnection = 10
	}
	sqlDB.SetMaxOpenConns(maxConnection)
	sqlDB.SetMaxIdleConns(maxConnection)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}
	return db, nil
}

// CloseDatabase releases the pool behind db.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
