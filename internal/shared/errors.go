package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName indicates a machine name collision on create.
	ErrDuplicateName = errors.New("name already in use")
	// ErrDuplicateEmail indicates an email collision on user create or update.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrRoleNotFound indicates an assignment to a nonexistent role.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleInUse blocks deleting a role that still has assigned users.
	ErrRoleInUse = errors.New("role has assigned users")
	// ErrProtectedResource blocks destructive operations on seed records.
	ErrProtectedResource = errors.New("protected resource")
	// ErrForbidden indicates an authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable indicates the backing store could not be reached.
	// Authorization treats it as a deny, never as an allow.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
