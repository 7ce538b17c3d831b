package enums

import "fmt"

// UserRole represents the counter permissions role of an employee.
type UserRole string

const (
	UserRoleCashier    UserRole = "cashier"
	UserRoleSupervisor UserRole = "supervisor"
	UserRoleManager    UserRole = "manager"
)

var validUserRoles = []UserRole{
	UserRoleCashier,
	UserRoleSupervisor,
	UserRoleManager,
}

var userRoleRank = map[UserRole]int{
	UserRoleCashier:    1,
	UserRoleSupervisor: 2,
	UserRoleManager:    3,
}

var userRoleLabels = map[UserRole]string{
	UserRoleCashier:    "Cajero",
	UserRoleSupervisor: "Supervisor",
	UserRoleManager:    "Gerente",
}

// Label is the display name used on exports.
func (r UserRole) Label() string {
	if label, ok := userRoleLabels[r]; ok {
		return label
	}
	return string(r)
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// AtLeast reports whether r grants everything min grants.
func (r UserRole) AtLeast(min UserRole) bool {
	rank, ok := userRoleRank[r]
	if !ok {
		return false
	}
	return rank >= userRoleRank[min]
}

// CanSupervise is true for roles allowed to edit, void and audit sales.
func (r UserRole) CanSupervise() bool {
	return r.AtLeast(UserRoleSupervisor)
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
