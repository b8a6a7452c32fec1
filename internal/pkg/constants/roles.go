package constants

// Session roles issued by the identity service.
const (
	Donor = "donor"
	NGO   = "ngo"
	Admin = "admin"
)

var ValidRoles = []string{Donor, NGO, Admin}

// IsValidRole returns true if role is one of the known session roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
