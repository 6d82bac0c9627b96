package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank(t *testing.T) {
	assert.Equal(t, 0, Rank(Superadmin))
	assert.Equal(t, 1, Rank(Administrator))
	assert.Equal(t, 2, Rank(Moderator))
	assert.Equal(t, 3, Rank(Helper))
	assert.Equal(t, 4, Rank(Captain))
	assert.Equal(t, 5, Rank(User))
	assert.Equal(t, unknownRank, Rank(Name("mascot")))
}

func TestHighest(t *testing.T) {
	tests := []struct {
		name   string
		roles  []Name
		want   Name
		wantOK bool
	}{
		{"single role", []Name{User}, User, true},
		{"walks hierarchy order", []Name{Helper, User, Administrator}, Administrator, true},
		{"superadmin wins", []Name{Captain, Superadmin}, Superadmin, true},
		{"no roles", nil, "", false},
		{"only unknown names", []Name{Name("mascot")}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Highest(tt.roles)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanAssign(t *testing.T) {
	// Strictly below the actor's own rank only
	assert.True(t, CanAssign(Superadmin, Administrator))
	assert.True(t, CanAssign(Administrator, Moderator))
	assert.True(t, CanAssign(Moderator, User))

	assert.False(t, CanAssign(Administrator, Administrator))
	assert.False(t, CanAssign(Moderator, Administrator))
	assert.False(t, CanAssign(User, User))
	assert.False(t, CanAssign(Helper, Superadmin))
}

func TestCanAccessAdminSurface(t *testing.T) {
	assert.True(t, CanAccessAdminSurface(Superadmin))
	assert.True(t, CanAccessAdminSurface(Administrator))
	assert.True(t, CanAccessAdminSurface(Moderator))
	assert.False(t, CanAccessAdminSurface(Helper))
	assert.False(t, CanAccessAdminSurface(Captain))
	assert.False(t, CanAccessAdminSurface(User))
}

func TestAssignableBy(t *testing.T) {
	assert.Equal(t, []Name{Administrator, Moderator, Helper, Captain, User}, AssignableBy(Superadmin))
	assert.Equal(t, []Name{Helper, Captain, User}, AssignableBy(Moderator))
	assert.Nil(t, AssignableBy(User))
}

func TestParse(t *testing.T) {
	for _, n := range All {
		got, ok := Parse(string(n))
		assert.True(t, ok)
		assert.Equal(t, n, got)
	}

	for _, s := range []string{"", "root", "SUPERADMIN", "Superadmin "} {
		_, ok := Parse(s)
		assert.False(t, ok, "input %q", s)
	}
}
