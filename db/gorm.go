package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gocddb/config"
	"gocddb/logger"
	"gocddb/model"
)

// GormDB is the catalog database used by the import command.
var GormDB *gorm.DB

// Open connects through dialector and configures the pool.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return gdb, nil
}

// Close closes the pool behind gdb.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ConnectGormDB opens the configured MySQL catalog into GormDB.
func ConnectGormDB(cfg *config.Config) error {
	gdb, err := Open(mysql.Open(DSNFromConfig(cfg)))
	if err != nil {
		return err
	}
	GormDB = gdb
	logger.Info("connected to catalog database",
		logger.String("host", cfg.DBHost),
		logger.String("name", cfg.DBName))
	return nil
}

// CloseGormDB closes GormDB.
func CloseGormDB() error {
	return Close(GormDB)
}

// Migrate creates or updates the catalog tables.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := gdb.AutoMigrate(model.CatalogModels()...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	return nil
}
