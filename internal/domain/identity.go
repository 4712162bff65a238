package domain

import "fmt"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDriver Role = "driver"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDriver:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Capability is the access level an endpoint requires.
type Capability int

const (
	// CapabilityDriver is any authenticated user.
	CapabilityDriver Capability = iota
	// CapabilityAdmin is an authenticated user with the admin role.
	CapabilityAdmin
)

// Identity is the authenticated caller, as recorded in its session.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
}

func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// Authorize is the only place capability checks are made.
func Authorize(id *Identity, c Capability) error {
	if id == nil || id.UserID == 0 {
		return ErrUnauthorized
	}
	switch c {
	case CapabilityDriver:
		if id.Role != RoleAdmin && id.Role != RoleDriver {
			return ErrForbidden
		}
		return nil
	case CapabilityAdmin:
		if !id.IsAdmin() {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// VisibleTo returns the rows id may see: drivers only their own missions,
// admins everything.
func VisibleTo(id Identity) MissionFilter {
	if id.IsAdmin() {
		return MissionFilter{}
	}
	driverID := id.UserID
	return MissionFilter{DriverID: &driverID}
}
