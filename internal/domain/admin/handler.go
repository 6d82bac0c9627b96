package admin

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/lumabyte/misspauling/internal/domain/auth"
	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/utils"
)

// Handler exposes the user management surface. All routes run behind the
// session middleware and the admin role gate.
type Handler struct {
	users user.Repository
	roles role.Repository
}

// NewHandler creates the admin handler
func NewHandler(users user.Repository, roles role.Repository) *Handler {
	return &Handler{users: users, roles: roles}
}

type userEntry struct {
	user.Info
	Roles     []role.Name `json:"roles"`
	LastLogin string      `json:"last_login"`
}

// ListUsers returns all users (optionally filtered by a search term) with
// their roles, plus the set of roles the actor is allowed to grant.
func (h *Handler) ListUsers(c *fiber.Ctx) error {
	actorHighest, ok := role.Highest(auth.CurrentRoles(c))
	if !ok {
		return utils.ErrorResponse(c, utils.ErrForbidden)
	}

	var (
		users []user.User
		err   error
	)
	if term := c.Query("q"); term != "" {
		users, err = h.users.Search(term)
	} else {
		users, err = h.users.List()
	}
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	entries := make([]userEntry, 0, len(users))
	for i := range users {
		names, err := h.roles.NamesForUser(users[i].ID)
		if err != nil {
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
		entries = append(entries, userEntry{
			Info:      users[i].ToInfo(),
			Roles:     names,
			LastLogin: users[i].LastLogin.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	csrf := auth.IssueCSRFToken(c)
	return utils.SuccessResponse(c, fiber.Map{
		"users":            entries,
		"assignable_roles": role.AssignableBy(actorHighest),
		"csrf_token":       csrf,
	}, "")
}

// AssignRole grants or revokes a role on a target user. The actor may never
// touch their own assignments and may only hand out roles strictly below
// their own rank; both checks run before any mutation.
func (h *Handler) AssignRole(c *fiber.Ctx) error {
	actor := auth.CurrentUser(c)

	targetID, err := strconv.ParseUint(c.FormValue("user_id"), 10, 32)
	if err != nil {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_USER_ID", "Invalid user id", fiber.StatusBadRequest))
	}

	targetRole, ok := role.Parse(c.FormValue("role"))
	if !ok {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_ROLE", "Unknown role", fiber.StatusBadRequest))
	}

	action := c.FormValue("action")
	if action != "assign" && action != "remove" {
		return utils.ErrorResponse(c, utils.NewAPIError("INVALID_ACTION", "Action must be assign or remove", fiber.StatusBadRequest))
	}

	if uint(targetID) == actor.ID {
		return utils.ErrorResponse(c, utils.NewAPIError("SELF_MODIFICATION", "You cannot modify your own roles", fiber.StatusForbidden))
	}

	actorHighest, ok := role.Highest(auth.CurrentRoles(c))
	if !ok || !role.CanAssign(actorHighest, targetRole) {
		return utils.ErrorResponse(c, utils.NewAPIError("ROLE_ABOVE_RANK", "You can only manage roles below your own", fiber.StatusForbidden))
	}

	target, err := h.users.FindByID(uint(targetID))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return utils.ErrorResponse(c, utils.ErrNotFound)
		}
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	if action == "assign" {
		actorID := actor.ID
		if err := h.roles.Assign(target.ID, targetRole, &actorID); err != nil {
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
	} else {
		if _, err := h.roles.Remove(target.ID, targetRole); err != nil {
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
	}

	slog.Info("Role assignment changed",
		"actor_id", actor.ID,
		"target_id", target.ID,
		"role", targetRole,
		"action", action,
	)

	names, err := h.roles.NamesForUser(target.ID)
	if err != nil {
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}
	return utils.SuccessResponse(c, fiber.Map{
		"user":  target.ToInfo(),
		"roles": names,
	}, "Role updated")
}
