package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/domain/user"
)

// LinkOutcome describes how a callback event was resolved
type LinkOutcome int

const (
	// OutcomeLoggedIn is the plain login path: the provider identity was
	// found (reused) or absent (created). The only outcome that may create
	// a user.
	OutcomeLoggedIn LinkOutcome = iota
	// OutcomeLinked attached the provider to the already-authenticated user
	OutcomeLinked
	// OutcomeForced resolved a conflict by stealing the identity from its
	// previous owner
	OutcomeForced
)

func (o LinkOutcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged_in"
	case OutcomeLinked:
		return "linked"
	case OutcomeForced:
		return "force_linked"
	}
	return "unknown"
}

// LinkResult is the terminal state of a resolved callback
type LinkResult struct {
	User    *user.User
	Outcome LinkOutcome
}

// Linker is the account linking state machine. Given a provider identity
// already verified by the adapter, plus optional link intent, it decides
// between login, link, conflict and force-link.
type Linker struct {
	db    *gorm.DB
	users user.Repository
}

// NewLinker creates the linking orchestrator
func NewLinker(db *gorm.DB, users user.Repository) *Linker {
	return &Linker{db: db, users: users}
}

// Resolve runs the linking decision table. linkUserID is the user the link
// intent resolved to, nil for a plain login. A conflict surfaces as a
// *ConflictError with no mutation; the caller decides whether to append a
// retry URL.
func (l *Linker) Resolve(provider user.Provider, authID string, name, avatarURL *string, steam *user.SteamIdentity, linkUserID *uint, force bool) (*LinkResult, error) {
	if linkUserID == nil {
		u, err := l.users.CreateOrUpdate(provider, authID, name, avatarURL, steam)
		if err != nil {
			return nil, err
		}
		return &LinkResult{User: u, Outcome: OutcomeLoggedIn}, nil
	}

	u, ok, err := l.users.LinkProvider(*linkUserID, provider, authID, name, avatarURL, steam)
	if err != nil {
		return nil, err
	}
	if ok {
		return &LinkResult{User: u, Outcome: OutcomeLinked}, nil
	}

	// u is the conflicting owner here
	if !force {
		return nil, &ConflictError{Provider: provider, ConflictingUserID: u.ID}
	}
	return l.forceLink(u.ID, *linkUserID, provider, authID, name, avatarURL, steam)
}

// forceLink clears the identity from its current owner and attaches it to
// the target in one transaction. A failure anywhere rolls back fully; the
// identity is never left belonging to neither user.
func (l *Linker) forceLink(ownerID, targetID uint, provider user.Provider, authID string, name, avatarURL *string, steam *user.SteamIdentity) (*LinkResult, error) {
	var out *user.User
	err := l.db.Transaction(func(tx *gorm.DB) error {
		txUsers := l.users.WithTx(tx)

		if err := txUsers.ClearProvider(ownerID, provider); err != nil {
			return err
		}

		u, ok, err := txUsers.LinkProvider(targetID, provider, authID, name, avatarURL, steam)
		if err != nil {
			return err
		}
		if !ok {
			// The identity was re-claimed between the clear and the attach;
			// roll everything back and report the conflict.
			return &ConflictError{Provider: provider, ConflictingUserID: u.ID}
		}
		out = u
		return nil
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("force link failed: %w", err)
	}
	return &LinkResult{User: out, Outcome: OutcomeForced}, nil
}
