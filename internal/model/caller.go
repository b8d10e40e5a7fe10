package model

// Roles carried in the access token's "role" claim.
const (
	RoleHost  = "HOST"
	RoleGuest = "GUEST"
	RoleAdmin = "ADMIN"
)

// Caller identifies who is performing an operation.  It is built from the
// authenticated request and passed to ownership checks.
type Caller struct {
	ID   uint64
	Role string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
