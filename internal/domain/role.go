package domain

import "fmt"

// Role enumerates account roles. The set is closed: authorization decisions
// switch exhaustively over it, so an unknown value never grants access.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
