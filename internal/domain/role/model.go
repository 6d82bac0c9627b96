package role

import (
	"time"

	"github.com/lumabyte/misspauling/internal/database"
)

// Name is one of the fixed set of role names
type Name string

const (
	Superadmin    Name = "superadmin"
	Administrator Name = "administrator"
	Moderator     Name = "moderator"
	Helper        Name = "helper"
	Captain       Name = "captain"
	User          Name = "user"
)

// String returns the string representation of the role name
func (n Name) String() string {
	return string(n)
}

// All lists every role in hierarchy order, most privileged first
var All = []Name{Superadmin, Administrator, Moderator, Helper, Captain, User}

// Descriptions holds the seeded description for each role
var Descriptions = map[Name]string{
	Superadmin:    "Full system access, cannot be assigned through the web interface",
	Administrator: "Manage users, roles and servers",
	Moderator:     "Access the admin dashboard and moderate the community",
	Helper:        "Assist with community support tasks",
	Captain:       "Pick-up game team captain",
	User:          "Default role for every registered account",
}

// Parse validates a role name against the fixed set.
// Unknown names return ok=false; there is no error-driven fallback.
func Parse(s string) (Name, bool) {
	for _, n := range All {
		if string(n) == s {
			return n, true
		}
	}
	return "", false
}

// Role is a row in the fixed role table, seeded once at startup
type Role struct {
	database.BaseModel
	Name        string `gorm:"column:name;unique;not null"`
	Description string `gorm:"column:description;type:text"`
}

func (Role) TableName() string {
	return "roles"
}

// UserRole joins a user to a role and records who granted it.
// AssignedBy is nil for system grants such as self-registration.
type UserRole struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     uint      `gorm:"column:user_id;not null;index;uniqueIndex:idx_user_role"`
	RoleID     uint      `gorm:"column:role_id;not null;index;uniqueIndex:idx_user_role"`
	AssignedAt time.Time `gorm:"column:assigned_at;autoCreateTime"`
	AssignedBy *uint     `gorm:"column:assigned_by"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
