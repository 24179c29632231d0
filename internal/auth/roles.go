package auth

// Role identifies the permission tier of a user account.
type Role string

// Roles ordered from least to most privileged.
const (
	RoleTechnician Role = "technician"
	RoleManager    Role = "manager"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

var roleRanks = map[Role]int{
	RoleTechnician: 0,
	RoleManager:    1,
	RoleSupervisor: 2,
	RoleAdmin:      3,
}

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast reports whether the role grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	rank, ok := roleRanks[r]
	if !ok {
		return false
	}
	minRank, ok := roleRanks[min]
	if !ok {
		return false
	}
	return rank >= minRank
}
