package rbac

import "time"

// Permission represents an atomic capability that can be granted to a role.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Role represents a named group of permissions. A user belongs to
// exactly one role and authorizes through it.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MatrixEntry annotates a permission with whether a given role holds it.
// Used to render the role permission matrix.
type MatrixEntry struct {
	Permission
	Granted bool `json:"granted"`
}

// Actor is the principal an authorization check runs for. The zero
// value is the anonymous actor and is always denied.
type Actor struct {
	ID int64
}

// Anonymous reports whether the actor is unauthenticated.
func (a Actor) Anonymous() bool {
	return a.ID == 0
}
