package model

// Role is the portal a user signs in to. It decides which schedule view
// applies to them.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleSales    Role = "sales"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales, RoleEmployee:
		return true
	}
	return false
}
