package types

// Role is the caller's platform role, taken from the verified token.
type Role string

const (
	RoleShipper Role = "shipper"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a token claim to a Role. An empty claim means shipper;
// anything unrecognised is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case "":
		return RoleShipper, true
	case RoleShipper, RoleDriver, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   ID
	Role Role
}
