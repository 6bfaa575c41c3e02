package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/utils"
)

// SQLiteService backs the DB_DRIVER=sqlite path for local development; the
// schema and the session-exclusivity index migrate identically to Postgres.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := utils.GetEnv("SQLITE_PATH", "sailzen.db", logg)

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
