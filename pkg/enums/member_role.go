package enums

import "fmt"

// MemberRole represents a TEFA-level permissions role.
type MemberRole string

const (
	MemberRoleOwner    MemberRole = "owner"
	MemberRoleOperator MemberRole = "operator"
	MemberRoleViewer   MemberRole = "viewer"
)

var validMemberRoles = []MemberRole{
	MemberRoleOwner,
	MemberRoleOperator,
	MemberRoleViewer,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// CanManageCatalog reports whether the role may create or mutate listings.
func (m MemberRole) CanManageCatalog() bool {
	return m == MemberRoleOwner || m == MemberRoleOperator
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
