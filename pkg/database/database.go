package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	Driver   string // postgres, mysql or sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// FilePath is the sqlite file. ":memory:" and "mode=memory" URIs open a
	// database that lives as long as the process.
	FilePath        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // minutes
	LogLevel        string
	// SlowThreshold logs statements slower than this at warn. Zero disables.
	SlowThreshold time.Duration
}

func dialectorFor(cfg *Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.New(postgres.Config{
			DSN: fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode),
			PreferSimpleProtocol: true,
		}), nil
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)), nil
	case "sqlite":
		return sqlite.Open(cfg.FilePath), nil
	}
	return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
}

// New opens cfg's database. Timestamps are written in UTC and unique
// violations come back as gorm.ErrDuplicatedKey on every driver.
func New(cfg *Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(cfg.LogLevel, cfg.SlowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cfg.Driver, err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: connection pool: %w", err)
	}

	// A second connection to an in-memory sqlite database would see an
	// empty schema.
	if IsInMemory(cfg) {
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
		return db, nil
	}
	if n := cfg.MaxIdleConns; n > 0 {
		pool.SetMaxIdleConns(n)
	}
	if n := cfg.MaxOpenConns; n > 0 {
		pool.SetMaxOpenConns(n)
	}
	if m := cfg.ConnMaxLifetime; m > 0 {
		pool.SetConnMaxLifetime(time.Duration(m) * time.Minute)
	}
	return db, nil
}

func IsInMemory(cfg *Config) bool {
	return cfg.Driver == "sqlite" &&
		(strings.Contains(cfg.FilePath, ":memory:") || strings.Contains(cfg.FilePath, "mode=memory"))
}

func AutoMigrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}
