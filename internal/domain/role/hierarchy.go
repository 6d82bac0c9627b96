package role

// hierarchy ranks each role; lower means more privileged.
var hierarchy = map[Name]int{
	Superadmin:    0,
	Administrator: 1,
	Moderator:     2,
	Helper:        3,
	Captain:       4,
	User:          5,
}

// unknownRank sorts below every real role
const unknownRank = 999

// AdminSurfaceRank is the least privileged rank allowed onto the admin
// surface (dashboard, user management, service restarts, log streaming).
const AdminSurfaceRank = 2 // moderator

// Rank returns the hierarchy rank for a role name, or unknownRank for
// names outside the fixed set.
func Rank(n Name) int {
	if r, ok := hierarchy[n]; ok {
		return r
	}
	return unknownRank
}

// Highest returns the most privileged role among names, walking the fixed
// hierarchy from most to least privileged. ok is false when names holds no
// known role.
func Highest(names []Name) (Name, bool) {
	held := make(map[Name]bool, len(names))
	for _, n := range names {
		held[n] = true
	}
	for _, n := range All {
		if held[n] {
			return n, true
		}
	}
	return "", false
}

// CanAssign reports whether an actor whose highest role is actor may grant or
// remove target. Only roles strictly below the actor's own rank qualify;
// equal rank is never assignable.
func CanAssign(actor, target Name) bool {
	return Rank(target) > Rank(actor)
}

// CanAccessAdminSurface reports whether the given highest role clears the
// admin surface gate.
func CanAccessAdminSurface(highest Name) bool {
	return Rank(highest) <= AdminSurfaceRank
}

// AssignableBy returns the subset of all roles the actor may grant.
func AssignableBy(actor Name) []Name {
	var out []Name
	for _, n := range All {
		if CanAssign(actor, n) {
			out = append(out, n)
		}
	}
	return out
}
