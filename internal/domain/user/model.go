package user

import (
	"fmt"
	"time"

	"github.com/lumabyte/misspauling/internal/database"
)

// Provider is an external identity issuer
type Provider string

const (
	ProviderDiscord Provider = "discord"
	ProviderSteam   Provider = "steam"
)

// String returns the string representation of the provider
func (p Provider) String() string {
	return string(p)
}

// ParseProvider validates a provider name
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderDiscord, ProviderSteam:
		return Provider(s), true
	default:
		return "", false
	}
}

// SteamIdentity carries the derived Steam representations that accompany the
// primary SteamID64. The four columns are always written together.
type SteamIdentity struct {
	SteamID    string // legacy STEAM_0:X:XXXXXXXX
	SteamID3   string // [U:1:XXXXXXX]
	ProfileURL string
}

// User is a logical account. Each provider identity is optional, but Discord
// is the canonical anchor: it is the only provider that can create an account
// and it can never be unlinked.
type User struct {
	database.BaseModel
	LastLogin time.Time `gorm:"column:last_login"`

	Name      *string `gorm:"column:name;size:128"`
	AvatarURL *string `gorm:"column:avatar_url;type:text"`

	SteamID64       *string `gorm:"column:steam_id64;size:32;uniqueIndex"`
	SteamID         *string `gorm:"column:steam_id;size:32"`
	SteamID3        *string `gorm:"column:steam_id3;size:32"`
	SteamProfileURL *string `gorm:"column:steam_profile_url;type:text"`

	DiscordID *string `gorm:"column:discord_id;size:32;uniqueIndex"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) String() string {
	ids := ""
	if u.SteamID64 != nil {
		ids += fmt.Sprintf(" steam:%s", *u.SteamID64)
	}
	if u.DiscordID != nil {
		ids += fmt.Sprintf(" discord:%s", *u.DiscordID)
	}
	name := ""
	if u.Name != nil {
		name = *u.Name
	}
	return fmt.Sprintf("<User id=%d name=%q%s>", u.ID, name, ids)
}

// HasProvider reports whether the given provider identity is linked
func (u *User) HasProvider(p Provider) bool {
	switch p {
	case ProviderDiscord:
		return u.DiscordID != nil
	case ProviderSteam:
		return u.SteamID64 != nil
	}
	return false
}

// ProviderLink describes one linked provider in API responses
type ProviderLink struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
	Linked     bool   `json:"linked"`
}

// Info is the user snapshot embedded in API responses and bearer tokens.
// It is display-only; security decisions always go back through the session.
type Info struct {
	ID              uint           `json:"id"`
	Name            *string        `json:"name"`
	Avatar          *string        `json:"avatar"`
	SteamID64       *string        `json:"steam_id64"`
	SteamID         *string        `json:"steam_id"`
	SteamID3        *string        `json:"steam_id3"`
	SteamProfileURL *string        `json:"steam_profile_url"`
	DiscordID       *string        `json:"discord_id"`
	AuthProviders   []ProviderLink `json:"auth_providers"`
}

// ToInfo converts a User row into its response snapshot
func (u *User) ToInfo() Info {
	var providers []ProviderLink
	if u.SteamID64 != nil {
		providers = append(providers, ProviderLink{Provider: string(ProviderSteam), ProviderID: *u.SteamID64, Linked: true})
	}
	if u.DiscordID != nil {
		providers = append(providers, ProviderLink{Provider: string(ProviderDiscord), ProviderID: *u.DiscordID, Linked: true})
	}
	return Info{
		ID:              u.ID,
		Name:            u.Name,
		Avatar:          u.AvatarURL,
		SteamID64:       u.SteamID64,
		SteamID:         u.SteamID,
		SteamID3:        u.SteamID3,
		SteamProfileURL: u.SteamProfileURL,
		DiscordID:       u.DiscordID,
		AuthProviders:   providers,
	}
}
