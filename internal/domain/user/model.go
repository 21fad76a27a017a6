package user

// Principal is the authenticated caller resolved from token introspection.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Roles  []string
}

const roleAdmin = "admin"

// IsAdmin reports whether the principal carries the platform admin role.
// League-level roles live on league memberships, not here.
func (p Principal) IsAdmin() bool {
	for _, role := range p.Roles {
		if role == roleAdmin {
			return true
		}
	}
	return false
}
