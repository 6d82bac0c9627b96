package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/utils"
)

func setupTestDB(t *testing.T) (*gorm.DB, Repository) {
	db := utils.SetupTestDB(t, &role.Role{}, &role.UserRole{}, &User{})
	db.Exec("DELETE FROM user_roles")
	db.Exec("DELETE FROM roles")
	db.Exec("DELETE FROM users")

	roles := role.NewRepository(db)
	require.NoError(t, roles.SeedDefaults())
	return db, NewRepository(db, roles)
}

func strPtr(s string) *string { return &s }

func steamExtras() *SteamIdentity {
	return &SteamIdentity{
		SteamID:    "STEAM_0:0:11101",
		SteamID3:   "[U:1:22202]",
		ProfileURL: "https://steamcommunity.com/profiles/76561197960287930",
	}
}

func TestCreateOrUpdate_Creates(t *testing.T) {
	db, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "111", strPtr("scout"), strPtr("http://cdn/avatar.png"), nil)
	require.NoError(t, err)

	require.NotNil(t, u.DiscordID)
	assert.Equal(t, "111", *u.DiscordID)
	require.NotNil(t, u.Name)
	assert.Equal(t, "scout", *u.Name)
	assert.Nil(t, u.SteamID64)
	assert.False(t, u.LastLogin.IsZero())

	// A fresh account gets the default role
	names, err := role.NewRepository(db).NamesForUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []role.Name{role.User}, names)
}

func TestCreateOrUpdate_ReusesExisting(t *testing.T) {
	_, repo := setupTestDB(t)

	first, err := repo.CreateOrUpdate(ProviderDiscord, "222", strPtr("scout"), nil, nil)
	require.NoError(t, err)

	second, err := repo.CreateOrUpdate(ProviderDiscord, "222", strPtr("scout the second"), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Name)
	assert.Equal(t, "scout the second", *second.Name)
}

func TestCreateOrUpdate_NilFieldsDoNotClobber(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.CreateOrUpdate(ProviderDiscord, "333", strPtr("engineer"), strPtr("http://cdn/a.png"), nil)
	require.NoError(t, err)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "333", nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, u.Name)
	assert.Equal(t, "engineer", *u.Name)
	require.NotNil(t, u.AvatarURL)
	assert.Equal(t, "http://cdn/a.png", *u.AvatarURL)
}

func TestFindByProviderID(t *testing.T) {
	_, repo := setupTestDB(t)

	created, err := repo.CreateOrUpdate(ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)

	found, err := repo.FindByProviderID(ProviderSteam, "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByProviderID(ProviderDiscord, "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLinkProvider(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "444", strPtr("medic"), nil, nil)
	require.NoError(t, err)

	linked, ok, err := repo.LinkProvider(u.ID, ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotNil(t, linked.SteamID64)
	assert.Equal(t, "76561197960287930", *linked.SteamID64)
	require.NotNil(t, linked.SteamID)
	assert.Equal(t, "STEAM_0:0:11101", *linked.SteamID)
	require.NotNil(t, linked.SteamID3)
	assert.Equal(t, "[U:1:22202]", *linked.SteamID3)
	require.NotNil(t, linked.DiscordID)
	assert.Equal(t, "444", *linked.DiscordID)
}

// Linking never steals: the conflicting owner comes back with ok=false and
// neither account changes.
func TestLinkProvider_Conflict(t *testing.T) {
	_, repo := setupTestDB(t)

	a, err := repo.CreateOrUpdate(ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)
	b, err := repo.CreateOrUpdate(ProviderDiscord, "555", nil, nil, nil)
	require.NoError(t, err)

	owner, ok, err := repo.LinkProvider(b.ID, ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, a.ID, owner.ID)

	// No mutation on either side
	bAfter, err := repo.FindByID(b.ID)
	require.NoError(t, err)
	assert.Nil(t, bAfter.SteamID64)

	aAfter, err := repo.FindByID(a.ID)
	require.NoError(t, err)
	require.NotNil(t, aAfter.SteamID64)
	assert.Equal(t, "76561197960287930", *aAfter.SteamID64)
}

// Two sessions racing to link the same Steam identity to different users
// must leave exactly one owner. Whichever transaction loses the unique index
// gets the same conflict outcome a sequential attempt would: the winner with
// ok=false, no mutation of its own.
func TestLinkProvider_ConcurrentSameIdentity(t *testing.T) {
	_, repo := setupTestDB(t)

	a, err := repo.CreateOrUpdate(ProviderDiscord, "2001", nil, nil, nil)
	require.NoError(t, err)
	b, err := repo.CreateOrUpdate(ProviderDiscord, "2002", nil, nil, nil)
	require.NoError(t, err)

	type outcome struct {
		callerID uint
		got      *User
		ok       bool
		err      error
	}

	start := make(chan struct{})
	results := make(chan outcome, 2)
	for _, id := range []uint{a.ID, b.ID} {
		go func(callerID uint) {
			<-start
			got, ok, err := repo.LinkProvider(callerID, ProviderSteam, "76561197960287930", nil, nil, steamExtras())
			results <- outcome{callerID: callerID, got: got, ok: ok, err: err}
		}(id)
	}
	close(start)

	var winnerID uint
	var loser *outcome
	for i := 0; i < 2; i++ {
		res := <-results
		require.NoError(t, res.err)
		if res.ok {
			require.Zero(t, winnerID, "both callers claimed the identity")
			winnerID = res.callerID
		} else {
			require.Nil(t, loser, "both callers were refused")
			loser = &res
		}
	}
	require.NotZero(t, winnerID)
	require.NotNil(t, loser)
	assert.Equal(t, winnerID, loser.got.ID)

	owner, err := repo.FindByProviderID(ProviderSteam, "76561197960287930")
	require.NoError(t, err)
	assert.Equal(t, winnerID, owner.ID)

	loserAfter, err := repo.FindByID(loser.callerID)
	require.NoError(t, err)
	assert.Nil(t, loserAfter.SteamID64)
}

// Two logins racing to create the same provider identity converge on a
// single account; the insert that loses the unique index logs into the
// winner's row instead of erroring.
func TestCreateOrUpdate_ConcurrentSameIdentity(t *testing.T) {
	db, repo := setupTestDB(t)

	type outcome struct {
		u   *User
		err error
	}

	start := make(chan struct{})
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			u, err := repo.CreateOrUpdate(ProviderDiscord, "2100", strPtr("spy"), nil, nil)
			results <- outcome{u: u, err: err}
		}()
	}
	close(start)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.u.ID, second.u.ID)

	var count int64
	require.NoError(t, db.Model(&User{}).Where("discord_id = ?", "2100").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// A secondary provider's profile only backfills unset fields
func TestLinkProvider_BackfillOnly(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "666", strPtr("heavy"), nil, nil)
	require.NoError(t, err)

	linked, ok, err := repo.LinkProvider(u.ID, ProviderSteam, "76561197960287930", strPtr("steam persona"), strPtr("http://cdn/steam.png"), steamExtras())
	require.NoError(t, err)
	require.True(t, ok)

	require.NotNil(t, linked.Name)
	assert.Equal(t, "heavy", *linked.Name) // established name kept
	require.NotNil(t, linked.AvatarURL)
	assert.Equal(t, "http://cdn/steam.png", *linked.AvatarURL) // unset field filled
}

func TestUnlinkProvider_DiscordForbidden(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "777", nil, nil, nil)
	require.NoError(t, err)

	_, _, err = repo.UnlinkProvider(u.ID, ProviderDiscord)
	assert.ErrorIs(t, err, ErrDiscordUnlinkForbidden)

	after, err := repo.FindByID(u.ID)
	require.NoError(t, err)
	assert.NotNil(t, after.DiscordID)
}

func TestUnlinkProvider_Steam(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "888", nil, nil, nil)
	require.NoError(t, err)
	_, ok, err := repo.LinkProvider(u.ID, ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)
	require.True(t, ok)

	after, requiresReauth, err := repo.UnlinkProvider(u.ID, ProviderSteam)
	require.NoError(t, err)
	assert.False(t, requiresReauth) // Discord still linked

	// All four Steam columns clear together
	assert.Nil(t, after.SteamID64)
	assert.Nil(t, after.SteamID)
	assert.Nil(t, after.SteamID3)
	assert.Nil(t, after.SteamProfileURL)
	assert.NotNil(t, after.DiscordID)
}

func TestUnlinkProvider_LastProviderRequiresReauth(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)

	_, requiresReauth, err := repo.UnlinkProvider(u.ID, ProviderSteam)
	require.NoError(t, err)
	assert.True(t, requiresReauth)
}

func TestUpdateSteamProfile(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderSteam, "76561197960287930", nil, nil, steamExtras())
	require.NoError(t, err)

	updated, err := repo.UpdateSteamProfile(u.ID, strPtr("fresh persona"), &SteamIdentity{
		SteamID:    "STEAM_0:0:11101",
		SteamID3:   "[U:1:22202]",
		ProfileURL: "https://steamcommunity.com/id/freshpersona",
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Name)
	assert.Equal(t, "fresh persona", *updated.Name)
	require.NotNil(t, updated.SteamProfileURL)
	assert.Equal(t, "https://steamcommunity.com/id/freshpersona", *updated.SteamProfileURL)
}

func TestUpdateSteamProfile_NoSteamLinked(t *testing.T) {
	_, repo := setupTestDB(t)

	u, err := repo.CreateOrUpdate(ProviderDiscord, "999", nil, nil, nil)
	require.NoError(t, err)

	_, err = repo.UpdateSteamProfile(u.ID, strPtr("x"), nil)
	assert.ErrorIs(t, err, ErrNoSteamLinked)
}

func TestSearch(t *testing.T) {
	_, repo := setupTestDB(t)

	_, err := repo.CreateOrUpdate(ProviderDiscord, "1010", strPtr("demoman"), nil, nil)
	require.NoError(t, err)
	_, err = repo.CreateOrUpdate(ProviderSteam, "76561197960287930", strPtr("sniper"), nil, steamExtras())
	require.NoError(t, err)

	byName, err := repo.Search("demo")
	require.NoError(t, err)
	require.Len(t, byName, 1)

	bySteam, err := repo.Search("76561197960287930")
	require.NoError(t, err)
	require.Len(t, bySteam, 1)
	require.NotNil(t, bySteam[0].Name)
	assert.Equal(t, "sniper", *bySteam[0].Name)
}
