package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"analyst/internal/config"
	"analyst/internal/domain"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record conflicts with an existing one")
	ErrAlreadyInitialized = errors.New("an admin user already exists")
	ErrInvalidInput       = errors.New("invalid input")
)

// inBatchSize bounds the number of bound parameters in IN (...) clauses.
const inBatchSize = 500

type Config struct {
	Dialector       gorm.Dialector
	Logger          logger.Interface
	AutoMigrate     bool
	Migrations      []any
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type Option func(*Config)

// Open connects to the store described by the options and migrates the schema.
// The returned handle is the only connection; callers pass it to repositories.
func Open(opts ...Option) (*gorm.DB, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Dialector == nil {
		return nil, fmt.Errorf("database: no dialector provided")
	}

	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Logger != nil {
		gormCfg.Logger = cfg.Logger
	}

	db, err := gorm.Open(cfg.Dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database: open connection: %w", err)
	}

	if err := configureConnectionPool(db, cfg); err != nil {
		return nil, err
	}

	if cfg.AutoMigrate && len(cfg.Migrations) > 0 {
		if err := db.AutoMigrate(cfg.Migrations...); err != nil {
			return nil, fmt.Errorf("database: auto migrate: %w", err)
		}
		log.Info("Database migration completed.")
	}

	return db, nil
}

// OpenFromConfig picks the dialector for the configured driver and opens it.
func OpenFromConfig(dbCfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := DialectorFor(dbCfg)
	if err != nil {
		return nil, err
	}

	opts := []Option{WithDialector(dialector)}
	if dbCfg.MaxOpenConns > 0 {
		opts = append(opts, WithMaxOpenConns(dbCfg.MaxOpenConns))
	}
	if dbCfg.Driver == config.DriverPostgres {
		opts = append(opts, WithConnMaxLifetime(5*time.Minute))
	}

	return Open(opts...)
}

func DialectorFor(dbCfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbCfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(dbCfg.FilePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("database: create data dir: %w", err)
			}
		}
		return sqlite.Open(fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000", dbCfg.FilePath)), nil
	case config.DriverPostgres:
		return postgres.Open(dbCfg.DSN), nil
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", dbCfg.Driver)
	}
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func defaultConfig() Config {
	return Config{
		Logger:       bridgedLogger(),
		AutoMigrate:  true,
		Migrations:   defaultMigrations(),
		MaxOpenConns: 1,
	}
}

func bridgedLogger() logger.Interface {
	return logger.New(
		log.Default(),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func defaultMigrations() []any {
	return []any{
		domain.User{},
		domain.IPList{},
		domain.ListItem{},
		domain.IPListItem{},
	}
}

func WithDialector(d gorm.Dialector) Option {
	return func(cfg *Config) {
		cfg.Dialector = d
	}
}

func WithLogger(l logger.Interface) Option {
	return func(cfg *Config) {
		cfg.Logger = l
	}
}

func WithAutoMigrate(enabled bool) Option {
	return func(cfg *Config) {
		cfg.AutoMigrate = enabled
	}
}

func WithMigrations(models ...any) Option {
	return func(cfg *Config) {
		if len(models) == 0 {
			cfg.Migrations = nil
			return
		}
		cfg.Migrations = append([]any(nil), models...)
	}
}

func WithMaxOpenConns(n int) Option {
	return func(cfg *Config) {
		cfg.MaxOpenConns = n
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.ConnMaxLifetime = d
	}
}

func configureConnectionPool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return nil
}

// translateError maps gorm errors onto the package's error kinds.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

func chunkStrings(values []string, size int) [][]string {
	if len(values) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
