// Package history persists completed calls to a local SQLite database
// for later review, tracking each call from its opening frame through
// its terminating TDU.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hambridge/p25gw/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/driver/sqlite"
	_ "modernc.org/sqlite"
)

// Config holds call-history persistence settings.
type Config struct {
	Path        string
	MinDuration time.Duration
	StaleAfter  time.Duration
}

// Store wraps the GORM connection backing call-history persistence.
type Store struct {
	db     *gorm.DB
	repo   *CallRepository
	log    *logger.Logger
	config Config
}

// Open creates or opens the SQLite database at cfg.Path and runs
// migrations. The database uses the pure-Go modernc.org/sqlite driver
// so the gateway never needs CGO.
func Open(cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = "gateway.db"
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = 500 * time.Millisecond
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	gormLog := gormlogger.New(
		&gormLogAdapter{log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        cfg.Path,
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to open call history database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.AutoMigrate(&CallRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run call history migrations: %w", err)
	}

	log.Info("call history database opened", logger.String("path", cfg.Path))

	return &Store{
		db:     db,
		repo:   NewCallRepository(db),
		log:    log.WithComponent("history"),
		config: cfg,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormLogAdapter struct {
	log *logger.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
