package rbac

import (
	"strings"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// Role is the coarse role stored on a user's profile.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleStaff Role = "Staff"
)

// ParseRole normalises a stored role string. Unknown roles map to "".
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "staff", "user", "employee":
		return RoleStaff
	}
	return ""
}

// Permissions lists the capabilities granted to a role.
func (r Role) Permissions() []string {
	switch r {
	case RoleAdmin:
		return shared.AdminScopes()
	case RoleStaff:
		return shared.StaffScopes()
	}
	return nil
}

// Profile links a token subject to a role.
type Profile struct {
	UserID   string
	FullName string
	Role     Role
}
