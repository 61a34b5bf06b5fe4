package shared

// Role is the closed set of roles a session may carry.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleInstructor Role = "Instructor"
	RoleTA         Role = "TA"
	RoleStudent    Role = "Student"
	RoleGuest      Role = "Guest"
)

// allRoles lists every valid role.
var allRoles = []Role{RoleAdmin, RoleInstructor, RoleTA, RoleStudent, RoleGuest}

// ParseRole maps a role name onto the enum. The second return is false for
// unknown names.
func ParseRole(name string) (Role, bool) {
	for _, r := range allRoles {
		if string(r) == name {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// actsAs is the static role hierarchy: for each role, the set of roles whose
// capacity it may additionally act in. Fixed at compile time.
var actsAs = map[Role][]Role{
	RoleAdmin: {RoleInstructor, RoleTA, RoleStudent, RoleGuest},
}

// CanActAs reports whether the role may act in the target role's capacity.
// Every role can act as itself.
func (r Role) CanActAs(target Role) bool {
	if r == target {
		return true
	}
	for _, t := range actsAs[r] {
		if t == target {
			return true
		}
	}
	return false
}

// HomePath returns the landing path for a role after login or when a page
// request is rejected for insufficient privileges.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleInstructor:
		return "/instructor"
	case RoleTA:
		return "/ta"
	case RoleStudent:
		return "/student"
	default:
		return "/guest"
	}
}

// RoleSet is a fixed allowed-role set attached to a route.
type RoleSet []Role

// Allows reports whether the given role belongs to the set, either directly
// or through the act-as hierarchy.
func (s RoleSet) Allows(r Role) bool {
	for _, allowed := range s {
		if r.CanActAs(allowed) {
			return true
		}
	}
	return false
}
