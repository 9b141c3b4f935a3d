package auth

import "time"

// User carries the credential fields needed to authenticate.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	RoleID       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
