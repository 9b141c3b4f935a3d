package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aegis-rbac/aegis/internal/shared"
)

// ServiceConfig tunes policy knobs of the RBAC core.
type ServiceConfig struct {
	// AutoGrantRoleID receives every newly defined permission inside
	// the same transaction. Zero disables the auto-grant.
	AutoGrantRoleID int64
}

// Service orchestrates the permission registry and the role-permission
// graph.
type Service struct {
	repo Repository
	cfg  ServiceConfig
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository, cfg ServiceConfig) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// DefinePermission registers a new permission in the catalog. When the
// auto-grant policy is active the permission is attached to the
// configured role in the same transaction, so a reader can never
// observe the permission without its bootstrap grant.
func (s *Service) DefinePermission(ctx context.Context, name, displayName, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}

	var created Permission
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.InsertPermission(ctx, name, strings.TrimSpace(displayName), strings.TrimSpace(description))
		if err != nil {
			return err
		}
		if s.cfg.AutoGrantRoleID != 0 {
			if err := tx.InsertGrant(ctx, s.cfg.AutoGrantRoleID, p.ID); err != nil {
				return fmt.Errorf("rbac: auto-grant permission %q: %w", name, err)
			}
		}
		created = p
		return nil
	})
	if err != nil {
		return Permission{}, err
	}
	return created, nil
}

// RemovePermission deletes a permission by machine name and cascades
// removal of every grant referencing it.
func (s *Service) RemovePermission(ctx context.Context, name string) error {
	perm, err := s.repo.GetPermissionByName(ctx, name)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeleteGrantsForPermission(ctx, perm.ID); err != nil {
			return err
		}
		rows, err := tx.DeletePermission(ctx, perm.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// UpdatePermission changes display name and description. The machine
// name stays fixed once checks reference it.
func (s *Service) UpdatePermission(ctx context.Context, id int64, displayName, description string) (Permission, error) {
	return s.repo.UpdatePermission(ctx, id, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// GetPermission fetches a permission by machine name.
func (s *Service) GetPermission(ctx context.Context, name string) (Permission, error) {
	return s.repo.GetPermissionByName(ctx, name)
}

// ListPermissions returns a page of the permission catalog. The filter
// is a case-insensitive substring match on name or display name.
func (s *Service) ListPermissions(ctx context.Context, filter string, page, perPage int) ([]Permission, shared.Pagination, error) {
	pn := shared.NewPagination(page, perPage, 0)
	perms, total, err := s.repo.ListPermissions(ctx, strings.TrimSpace(filter), pn.PerPage, pn.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return perms, shared.NewPagination(pn.Page, pn.PerPage, total), nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, displayName, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// UpdateRole updates display fields of an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, displayName, description string) (Role, error) {
	return s.repo.UpdateRole(ctx, id, strings.TrimSpace(displayName), strings.TrimSpace(description))
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListRoles returns a page of roles ordered by ID.
func (s *Service) ListRoles(ctx context.Context, page, perPage int) ([]Role, shared.Pagination, error) {
	pn := shared.NewPagination(page, perPage, 0)
	roles, total, err := s.repo.ListRoles(ctx, pn.PerPage, pn.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return roles, shared.NewPagination(pn.Page, pn.PerPage, total), nil
}

// DeleteRole removes a role. Deletion is blocked while users are still
// assigned so an assignment never points at a missing role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	count, err := s.repo.CountRoleUsers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrRoleInUse
	}
	rows, err := s.repo.DeleteRole(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Grant attaches a permission to a role. Idempotent.
func (s *Service) Grant(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.Grant(ctx, roleID, permissionID)
}

// Revoke detaches a permission from a role. Idempotent.
func (s *Service) Revoke(ctx context.Context, roleID, permissionID int64) error {
	return s.repo.Revoke(ctx, roleID, permissionID)
}

// HasPermission reports whether the role holds the named permission.
// Checks are exact-name lookups: there is no hierarchy and no wildcard.
func (s *Service) HasPermission(ctx context.Context, roleID int64, permissionName string) (bool, error) {
	return s.repo.RoleHasPermission(ctx, roleID, permissionName)
}

// EffectivePermissions returns all permissions granted to a role.
func (s *Service) EffectivePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.EffectivePermissions(ctx, roleID)
}

// PermissionMatrix returns a page of permissions annotated with whether
// the role holds each one, for the role settings screen.
func (s *Service) PermissionMatrix(ctx context.Context, roleID int64, search string, page, perPage int) ([]MatrixEntry, shared.Pagination, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, shared.Pagination{}, err
	}
	pn := shared.NewPagination(page, perPage, 0)
	entries, total, err := s.repo.PermissionMatrix(ctx, roleID, strings.TrimSpace(search), pn.PerPage, pn.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(pn.Page, pn.PerPage, total), nil
}

// SetGrant applies the matrix toggle: status true grants, false revokes.
func (s *Service) SetGrant(ctx context.Context, roleID, permissionID int64, status bool) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrRoleNotFound
		}
		return err
	}
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return err
	}
	if status {
		return s.repo.Grant(ctx, roleID, permissionID)
	}
	return s.repo.Revoke(ctx, roleID, permissionID)
}
