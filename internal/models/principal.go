package models

// Role controls what API surface a principal may touch.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the resolved identity behind a bearer token.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AuthToken is a stored bearer token mapping to a principal.
type AuthToken struct {
	Token     string    `json:"token" badgerhold:"key"`
	Principal Principal `json:"principal"`
}
