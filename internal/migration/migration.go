package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditrepository "github.com/smallbiznis/loobook/internal/audit/repository"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/reporting/repository"
	"gorm.io/gorm"
)

// ErrDirtySchema means a previous Postgres migration stopped half way and
// needs a manual fix before the service can start.
var ErrDirtySchema = errors.New("migration_dirty_schema")

// modelSets lists the gorm models per area, in dependency order.
var modelSets = []struct {
	name    string
	migrate func(*gorm.DB) error
}{
	{"reporting tables", repository.AutoMigrate},
	{"admin members", authorization.AutoMigrate},
	{"audit logs", auditrepository.AutoMigrate},
}

// Migrate applies the embedded SQL files on Postgres and falls back to the
// gorm models on MySQL and SQLite. It returns the applied schema version;
// model migrations report 0.
func Migrate(conn *gorm.DB) (uint, error) {
	if conn.Dialector.Name() != "postgres" {
		return 0, AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return 0, err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations brings a Postgres database up to the newest embedded
// version. The migrator is not closed: closing it would close db.
func RunMigrations(db *sql.DB) (uint, error) {
	if db == nil {
		return 0, errors.New("migration database handle is required")
	}
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, err
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("version %d: %w", version, ErrDirtySchema)
	}
	return version, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// AutoMigrate builds the schema from the gorm models.
func AutoMigrate(conn *gorm.DB) error {
	for _, set := range modelSets {
		if err := set.migrate(conn); err != nil {
			return fmt.Errorf("migrate %s: %w", set.name, err)
		}
	}
	return nil
}
