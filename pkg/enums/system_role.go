package enums

import "fmt"

// SystemRole is the platform-wide role stored on the user row. TEFA-scoped
// permissions live on memberships, not here.
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleBuyer SystemRole = "buyer"
)

var validSystemRoles = []SystemRole{
	SystemRoleAdmin,
	SystemRoleBuyer,
}

// String implements fmt.Stringer.
func (s SystemRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SystemRole.
func (s SystemRole) IsValid() bool {
	for _, candidate := range validSystemRoles {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSystemRole converts raw input into a SystemRole.
func ParseSystemRole(value string) (SystemRole, error) {
	for _, candidate := range validSystemRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system role %q", value)
}
