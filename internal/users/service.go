package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-rbac/aegis/internal/rbac"
	"github.com/aegis-rbac/aegis/internal/shared"
)

// Service handles user management business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new user with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, name, email, password string, roleID int64) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, strings.TrimSpace(name), normalizeEmail(email), string(hash), roleID)
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of users ordered by ID.
func (s *Service) List(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	pn := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.List(ctx, pn.PerPage, pn.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(pn.Page, pn.PerPage, total), nil
}

// Update changes name and email.
func (s *Service) Update(ctx context.Context, id int64, name, email string) (User, error) {
	return s.repo.Update(ctx, id, strings.TrimSpace(name), normalizeEmail(email))
}

// Delete removes a user. The seed super-admin account is a permanent
// protected identity and can never be deleted, regardless of who asks.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == shared.SuperAdminUserID {
		return shared.ErrProtectedResource
	}
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole replaces the user's role. Reassignment replaces, never adds.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RoleOf resolves the role assigned to the user.
func (s *Service) RoleOf(ctx context.Context, userID int64) (rbac.Role, error) {
	return s.repo.RoleOf(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
