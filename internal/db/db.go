package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maintlog-backend/config"
	"maintlog-backend/internal/model"
)

// SchemaVersion is a single monotonically increasing integer. Any mismatch
// on open triggers the full drop/recreate/reseed path; there is no data
// migration.
const SchemaVersion = 1

// demoPasswordHash is the fixed MD5 of "123456" used by the seed accounts.
// Kept for parity with the original deployment; see DESIGN.md.
const demoPasswordHash = "e10adc3949ba59abbe56e057f20f883e"

type schemaVersion struct {
	ID      int64 `gorm:"primaryKey"`
	Version int   `gorm:"not null"`
}

func (schemaVersion) TableName() string { return "schema_version" }

// Init opens the database connection and ensures the schema is current.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// sqliteDSN makes every sqlite connection enforce foreign keys. The pragma
// has to ride in the DSN because the pool opens connections lazily.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// EnsureSchema compares the stored schema version against SchemaVersion and
// rebuilds from scratch on any mismatch: drop all four tables child before
// parent, recreate parent first, re-seed.
func EnsureSchema(db *gorm.DB) error {
	current := -1
	if db.Migrator().HasTable(&schemaVersion{}) {
		var row schemaVersion
		if err := db.Take(&row).Error; err == nil {
			current = row.Version
		}
	}
	if current == SchemaVersion {
		return nil
	}
	if current >= 0 {
		log.Printf("schema version %d does not match %d, dropping and recreating all tables", current, SchemaVersion)
	}

	if err := db.Migrator().DropTable(
		&model.StepRecord{},
		&model.Component{},
		&model.User{},
		&model.Workshop{},
		&schemaVersion{},
	); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Workshop{},
		&model.User{},
		&model.Component{},
		&model.StepRecord{},
		&schemaVersion{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if err := seed(db); err != nil {
		return fmt.Errorf("failed to seed initial data: %w", err)
	}
	return db.Create(&schemaVersion{ID: 1, Version: SchemaVersion}).Error
}

// seed inserts the provisioning workshops and the two demo accounts.
func seed(db *gorm.DB) error {
	workshops := []model.Workshop{
		{Name: "Electromechanical"},
		{Name: "Electrical"},
		{Name: "Hydraulic"},
	}
	if err := db.Create(&workshops).Error; err != nil {
		return err
	}

	users := []model.User{
		{
			Username:     "admin",
			PasswordHash: demoPasswordHash,
			DisplayName:  "General Administrator",
			Role:         model.RoleAdmin,
			IsActive:     true,
		},
		{
			Username:     "jperez",
			PasswordHash: demoPasswordHash,
			DisplayName:  "Juan Perez",
			Role:         model.RoleTechnician,
			IsActive:     true,
			WorkshopID:   &workshops[0].ID,
		},
	}
	return db.Create(&users).Error
}
