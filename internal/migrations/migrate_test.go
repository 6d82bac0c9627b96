package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/utils"
)

func TestRunMigrations(t *testing.T) {
	db := utils.SetupTestDB(t)
	db.Exec("DELETE FROM user_roles")
	db.Exec("DELETE FROM roles")

	require.NoError(t, RunMigrations(db))

	// The fixed role set is seeded exactly once
	roles, err := role.NewRepository(db).ListAll()
	require.NoError(t, err)
	assert.Len(t, roles, len(role.All))

	// Re-running is harmless
	require.NoError(t, RunMigrations(db))
	roles, err = role.NewRepository(db).ListAll()
	require.NoError(t, err)
	assert.Len(t, roles, len(role.All))
}
