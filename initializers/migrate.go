package initializers

import (
	"fmt"
	"log"

	"github.com/Itish41/ContraCam/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate brings the schema up to date. Postgres runs the versioned SQL files
// under db/migrations; sqlite, used for local runs, is auto-migrated by gorm.
func Migrate(driver string) error {
	log.Println("Starting database migration...")

	if DB == nil {
		return fmt.Errorf("database is not connected")
	}

	if driver == "sqlite" {
		if err := DB.AutoMigrate(&models.KVEntry{}, &models.AlertRule{}); err != nil {
			return fmt.Errorf("error auto-migrating sqlite schema: %w", err)
		}
		log.Println("Migration completed successfully!")
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("error getting underlying *sql.DB: %w", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create the postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://db/migrations",
		"postgres",
		dbDriver,
	)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("error running migrations: %w", err)
	}

	log.Println("Migration completed successfully!")
	return nil
}
