package session

import (
	"time"

	"github.com/lumabyte/misspauling/internal/database"
)

// Session is a provider-scoped login instance identified by an opaque token.
// A session is valid iff it is active and either non-expiring or not yet past
// its expiry.
type Session struct {
	database.BaseModel

	UserID       uint       `gorm:"column:user_id;not null;index"`
	SessionToken string     `gorm:"column:session_token;size:255;unique;not null"`
	Provider     string     `gorm:"column:provider;size:20;not null"`
	IPAddress    *string    `gorm:"column:ip_address;size:45"` // fits IPv6
	UserAgent    *string    `gorm:"column:user_agent;type:text"`
	ExpiresAt    *time.Time `gorm:"column:expires_at"` // nil = non-expiring
	IsActive     bool       `gorm:"column:is_active;default:true"`
}

func (Session) TableName() string {
	return "user_sessions"
}

// Valid reports whether the session is active and unexpired at t
func (s *Session) Valid(t time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(t) {
		return false
	}
	return true
}
