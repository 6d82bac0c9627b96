package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/session"
	"github.com/lumabyte/misspauling/internal/domain/user"
)

// RunMigrations runs all database migrations and seeds the fixed role set
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&user.User{},
		&session.Session{},
		&role.Role{},
		&role.UserRole{},
	); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}

	if err := role.NewRepository(db).SeedDefaults(); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	return nil
}
