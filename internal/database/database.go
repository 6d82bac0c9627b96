package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/config"
)

// BaseModel holds the fields shared by every persisted row
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Connect opens the Postgres connection pool. TranslateError is enabled so
// unique-constraint violations surface as gorm.ErrDuplicatedKey, which the
// identity repository relies on to resolve concurrent linking races.
func Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
