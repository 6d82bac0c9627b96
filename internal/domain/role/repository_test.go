package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/utils"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db := utils.SetupTestDB(t, &Role{}, &UserRole{})
	db.Exec("DELETE FROM user_roles")
	db.Exec("DELETE FROM roles")
	return db
}

func TestSeedDefaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.SeedDefaults())

	roles, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, roles, len(All))

	seeded := make(map[string]bool, len(roles))
	for _, r := range roles {
		seeded[r.Name] = true
	}
	for _, n := range All {
		assert.True(t, seeded[string(n)], "role %s should be seeded", n)
	}

	// Seeding again must not duplicate
	require.NoError(t, repo.SeedDefaults())
	roles, err = repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, roles, len(All))
}

func TestAssign(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	const userID = uint(101)

	require.NoError(t, repo.Assign(userID, Helper, nil))

	has, err := repo.HasRole(userID, Helper)
	require.NoError(t, err)
	assert.True(t, has)

	names, err := repo.NamesForUser(userID)
	require.NoError(t, err)
	assert.Equal(t, []Name{Helper}, names)
}

func TestAssign_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	const userID = uint(102)

	require.NoError(t, repo.Assign(userID, Captain, nil))
	require.NoError(t, repo.Assign(userID, Captain, nil))

	names, err := repo.NamesForUser(userID)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

// Concurrent duplicate grants collapse onto the (user, role) unique index;
// both callers succeed and exactly one row exists.
func TestAssign_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	const userID = uint(105)

	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			errs <- repo.Assign(userID, Captain, nil)
		}()
	}
	close(start)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	var count int64
	require.NoError(t, db.Model(&UserRole{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAssign_RecordsAssigner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	actorID := uint(1)
	require.NoError(t, repo.Assign(200, Moderator, &actorID))
	require.NoError(t, repo.Assign(201, Moderator, nil)) // system grant

	var granted UserRole
	require.NoError(t, db.Where("user_id = ?", 200).First(&granted).Error)
	require.NotNil(t, granted.AssignedBy)
	assert.Equal(t, actorID, *granted.AssignedBy)

	var system UserRole
	require.NoError(t, db.Where("user_id = ?", 201).First(&system).Error)
	assert.Nil(t, system.AssignedBy)
}

func TestAssign_UnknownRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	err := repo.Assign(103, Name("mascot"), nil)
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRemove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())

	const userID = uint(104)
	require.NoError(t, repo.Assign(userID, Helper, nil))

	removed, err := repo.Remove(userID, Helper)
	require.NoError(t, err)
	assert.True(t, removed)

	// Removing a role the user does not hold reports false
	removed, err = repo.Remove(userID, Helper)
	require.NoError(t, err)
	assert.False(t, removed)
}
