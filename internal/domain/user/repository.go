package user

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/domain/role"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrDiscordUnlinkForbidden is returned for any attempt to unlink Discord,
	// which anchors the account and can never be removed
	ErrDiscordUnlinkForbidden = errors.New("discord account cannot be unlinked")
	// ErrNoSteamLinked is returned when a Steam-only operation targets a user
	// without a linked Steam identity
	ErrNoSteamLinked = errors.New("no steam account linked")
)

// Repository is the single source of truth mapping users to provider
// identities and owning role assignment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByProviderID(provider Provider, authID string) (*User, error)
	FindByID(id uint) (*User, error)
	List() ([]User, error)
	Search(term string) ([]User, error)

	CreateOrUpdate(provider Provider, authID string, name, avatarURL *string, steam *SteamIdentity) (*User, error)
	LinkProvider(userID uint, provider Provider, authID string, name, avatarURL *string, steam *SteamIdentity) (*User, bool, error)
	UnlinkProvider(userID uint, provider Provider) (*User, bool, error)
	ClearProvider(userID uint, provider Provider) error
	UpdateSteamProfile(userID uint, name *string, steam *SteamIdentity) (*User, error)
}

type repository struct {
	db    *gorm.DB
	roles role.Repository
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB, roles role.Repository) Repository {
	return &repository{db: db, roles: roles}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx, roles: r.roles.WithTx(tx)}
}

// FindByProviderID gets the user owning a provider identity, if any
func (r *repository) FindByProviderID(provider Provider, authID string) (*User, error) {
	column := "discord_id"
	if provider == ProviderSteam {
		column = "steam_id64"
	}

	var u User
	if err := r.db.Where(column+" = ?", authID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByID gets a user by database ID
func (r *repository) FindByID(id uint) (*User, error) {
	var u User
	if err := r.db.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) List() ([]User, error) {
	var users []User
	if err := r.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Search finds users whose name, Discord id or Steam id64 matches the term
func (r *repository) Search(term string) ([]User, error) {
	var users []User
	pattern := "%" + term + "%"
	err := r.db.
		Where("name ILIKE ? OR discord_id = ? OR steam_id64 = ?", pattern, term, term).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// setProviderIdentity writes the provider columns onto u. Steam always writes
// its four correlated columns together.
func setProviderIdentity(u *User, provider Provider, authID string, steam *SteamIdentity) {
	switch provider {
	case ProviderSteam:
		u.SteamID64 = &authID
		if steam != nil {
			u.SteamID = &steam.SteamID
			u.SteamID3 = &steam.SteamID3
			u.SteamProfileURL = &steam.ProfileURL
		}
	case ProviderDiscord:
		u.DiscordID = &authID
	}
}

// CreateOrUpdate is the plain login path: the provider identity is either
// found (log in, refresh profile) or absent (create). This is the only
// operation that creates users; new users are auto-granted the "user" role.
func (r *repository) CreateOrUpdate(provider Provider, authID string, name, avatarURL *string, steam *SteamIdentity) (*User, error) {
	var out *User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx).(*repository)

		u, err := txr.FindByProviderID(provider, authID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}

		if u != nil {
			// Existing account: profile fields only overwritten by non-null
			// incoming values, Steam sub-fields always replaced as a unit.
			if name != nil {
				u.Name = name
			}
			if avatarURL != nil {
				u.AvatarURL = avatarURL
			}
			if provider == ProviderSteam && steam != nil {
				u.SteamID = &steam.SteamID
				u.SteamID3 = &steam.SteamID3
				u.SteamProfileURL = &steam.ProfileURL
			}
			u.LastLogin = time.Now().UTC()
			if err := tx.Save(u).Error; err != nil {
				return err
			}
			out = u
			return nil
		}

		nu := &User{
			Name:      name,
			AvatarURL: avatarURL,
			LastLogin: time.Now().UTC(),
		}
		setProviderIdentity(nu, provider, authID, steam)

		if err := tx.Create(nu).Error; err != nil {
			return err
		}

		if err := txr.roles.Assign(nu.ID, role.User, nil); err != nil {
			return err
		}
		out = nu
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a create race for the same provider identity; the
			// winner's row is the account to log into. The aborted
			// transaction has rolled back, so this runs on a fresh one.
			winner, ferr := r.FindByProviderID(provider, authID)
			if ferr != nil {
				return nil, err
			}
			winner.LastLogin = time.Now().UTC()
			if serr := r.db.Save(winner).Error; serr != nil {
				return nil, serr
			}
			return winner, nil
		}
		return nil, err
	}
	return out, nil
}

// LinkProvider attaches a provider identity to an existing user. If the
// identity already belongs to a different user the conflicting owner is
// returned with ok=false and nothing is mutated; linking never steals.
func (r *repository) LinkProvider(userID uint, provider Provider, authID string, name, avatarURL *string, steam *SteamIdentity) (*User, bool, error) {
	var out *User
	var ok bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx).(*repository)

		owner, err := txr.FindByProviderID(provider, authID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			return err
		}
		if owner != nil && owner.ID != userID {
			out, ok = owner, false
			return nil
		}

		u, err := txr.FindByID(userID)
		if err != nil {
			return err
		}

		setProviderIdentity(u, provider, authID, steam)

		// A secondary provider's profile data only backfills unset fields;
		// it never clobbers an established name or avatar.
		if name != nil && u.Name == nil {
			u.Name = name
		}
		if avatarURL != nil && u.AvatarURL == nil {
			u.AvatarURL = avatarURL
		}
		u.LastLogin = time.Now().UTC()

		if err := tx.Save(u).Error; err != nil {
			return err
		}
		out, ok = u, true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Raced against a concurrent link of the same identity; the
			// late arrival gets the same conflict outcome a sequential one
			// would.
			winner, ferr := r.FindByProviderID(provider, authID)
			if ferr == nil && winner.ID != userID {
				return winner, false, nil
			}
		}
		return nil, false, err
	}
	return out, ok, nil
}

// UnlinkProvider clears a provider identity from a user. Discord is always
// denied. requiresReauth is true when the removed provider was the only
// remaining login method; the unlink still succeeds but callers must force a
// client-side logout.
func (r *repository) UnlinkProvider(userID uint, provider Provider) (*User, bool, error) {
	if provider == ProviderDiscord {
		return nil, false, ErrDiscordUnlinkForbidden
	}

	var out *User
	var requiresReauth bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx).(*repository)

		u, err := txr.FindByID(userID)
		if err != nil {
			return err
		}

		requiresReauth = u.SteamID64 != nil && u.DiscordID == nil

		u.SteamID64 = nil
		u.SteamID = nil
		u.SteamID3 = nil
		u.SteamProfileURL = nil

		if err := tx.Save(u).Error; err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, requiresReauth, nil
}

// ClearProvider removes a provider identity without the Discord guard or the
// reauth bookkeeping. It exists for the force-link transaction, which runs it
// against the losing account inside the same transaction as the re-attach.
func (r *repository) ClearProvider(userID uint, provider Provider) error {
	updates := map[string]any{}
	switch provider {
	case ProviderSteam:
		updates["steam_id64"] = nil
		updates["steam_id"] = nil
		updates["steam_id3"] = nil
		updates["steam_profile_url"] = nil
	case ProviderDiscord:
		updates["discord_id"] = nil
	}
	return r.db.Model(&User{}).Where("id = ?", userID).Updates(updates).Error
}

// UpdateSteamProfile refreshes the derived Steam columns and optionally the
// display name from a fresh Steam Web API fetch.
func (r *repository) UpdateSteamProfile(userID uint, name *string, steam *SteamIdentity) (*User, error) {
	var out *User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		txr := r.WithTx(tx).(*repository)

		u, err := txr.FindByID(userID)
		if err != nil {
			return err
		}
		if u.SteamID64 == nil {
			return ErrNoSteamLinked
		}

		if steam != nil {
			u.SteamID = &steam.SteamID
			u.SteamID3 = &steam.SteamID3
			u.SteamProfileURL = &steam.ProfileURL
		}
		if name != nil {
			u.Name = name
		}

		if err := tx.Save(u).Error; err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
