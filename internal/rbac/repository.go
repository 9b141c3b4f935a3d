package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-rbac/aegis/internal/platform/db"
	"github.com/aegis-rbac/aegis/internal/shared"
)

// Repository defines persistence operations for the RBAC core.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetPermission(ctx context.Context, id int64) (Permission, error)
	GetPermissionByName(ctx context.Context, name string) (Permission, error)
	ListPermissions(ctx context.Context, filter string, limit, offset int) ([]Permission, int, error)
	UpdatePermission(ctx context.Context, id int64, displayName, description string) (Permission, error)

	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, displayName, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, displayName, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) (int64, error)
	ListRoles(ctx context.Context, limit, offset int) ([]Role, int, error)
	CountRoleUsers(ctx context.Context, roleID int64) (int, error)

	Grant(ctx context.Context, roleID, permissionID int64) error
	Revoke(ctx context.Context, roleID, permissionID int64) error
	RoleHasPermission(ctx context.Context, roleID int64, permissionName string) (bool, error)
	UserHasPermission(ctx context.Context, userID int64, permissionName string) (bool, error)
	EffectivePermissions(ctx context.Context, roleID int64) ([]Permission, error)
	PermissionMatrix(ctx context.Context, roleID int64, search string, limit, offset int) ([]MatrixEntry, int, error)
}

// TxRepository exposes the operations that must share one transaction,
// such as creating a permission together with its super-admin grant.
type TxRepository interface {
	InsertPermission(ctx context.Context, name, displayName, description string) (Permission, error)
	InsertGrant(ctx context.Context, roleID, permissionID int64) error
	DeletePermission(ctx context.Context, id int64) (int64, error)
	DeleteGrantsForPermission(ctx context.Context, permissionID int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const permissionColumns = "id, name, display_name, description, created_at, updated_at"
const roleColumns = "id, name, display_name, description, created_at, updated_at"

// WithTx wraps callback in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// GetPermission fetches a permission by ID.
func (r *PGRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	return scanPermission(row)
}

// GetPermissionByName fetches a permission by machine name.
func (r *PGRepository) GetPermissionByName(ctx context.Context, name string) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name)
	return scanPermission(row)
}

// ListPermissions returns one page of permissions matching the filter
// plus the total match count. Filtering is a case-insensitive substring
// match on name or display name; ordering is ascending by ID so pages
// stay stable across requests.
func (r *PGRepository) ListPermissions(ctx context.Context, filter string, limit, offset int) ([]Permission, int, error) {
	const where = `($1 = '' OR name ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions WHERE `+where, filter).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE `+where+` ORDER BY id ASC LIMIT $2 OFFSET $3`,
		filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, 0, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

// UpdatePermission updates display fields. The machine name is
// immutable because authorization checks reference it by name.
func (r *PGRepository) UpdatePermission(ctx context.Context, id int64, displayName, description string) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE permissions SET display_name = $2, description = $3, updated_at = now()
		 WHERE id = $1 RETURNING `+permissionColumns, id, displayName, description)
	return scanPermission(row)
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name, displayName, description string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, display_name, description) VALUES ($1, $2, $3) RETURNING `+roleColumns,
		name, displayName, description)
	role, err := scanRole(row)
	if err != nil {
		return Role{}, mapPGError(err)
	}
	return role, nil
}

// UpdateRole updates display fields of an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, displayName, description string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE roles SET display_name = $2, description = $3, updated_at = now()
		 WHERE id = $1 RETURNING `+roleColumns, id, displayName, description)
	return scanRole(row)
}

// DeleteRole removes a role and returns the number of deleted rows.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListRoles returns one page of roles ordered by ID plus the total count.
func (r *PGRepository) ListRoles(ctx context.Context, limit, offset int) ([]Role, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// CountRoleUsers counts users currently assigned to the role.
func (r *PGRepository) CountRoleUsers(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&count)
	return count, err
}

// Grant attaches a permission to a role. Granting twice is a no-op:
// the unique (role_id, permission_id) pair absorbs the conflict.
func (r *PGRepository) Grant(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_permission (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return mapPGError(err)
}

// Revoke detaches a permission from a role. Revoking an ungranted
// permission is a no-op.
func (r *PGRepository) Revoke(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_permission WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	return err
}

// RoleHasPermission checks the grant set by permission name.
func (r *PGRepository) RoleHasPermission(ctx context.Context, roleID int64, permissionName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM role_permission rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1 AND p.name = $2
		)`, roleID, permissionName).Scan(&exists)
	return exists, err
}

// UserHasPermission resolves the user's role and checks its grant set
// in a single round trip.
func (r *PGRepository) UserHasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM users u
			JOIN role_permission rp ON rp.role_id = u.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE u.id = $1 AND p.name = $2
		)`, userID, permissionName).Scan(&exists)
	return exists, err
}

// EffectivePermissions returns every permission granted to the role.
func (r *PGRepository) EffectivePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.display_name, p.description, p.created_at, p.updated_at
		 FROM permissions p
		 JOIN role_permission rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.id ASC`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// PermissionMatrix lists permissions matching the search annotated with
// a granted flag for the role.
func (r *PGRepository) PermissionMatrix(ctx context.Context, roleID int64, search string, limit, offset int) ([]MatrixEntry, int, error) {
	const where = `($2 = '' OR p.name ILIKE '%' || $2 || '%' OR p.display_name ILIKE '%' || $2 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM permissions p
		 WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.display_name ILIKE '%' || $1 || '%')`,
		search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.display_name, p.description, p.created_at, p.updated_at,
		        EXISTS (SELECT 1 FROM role_permission rp WHERE rp.role_id = $1 AND rp.permission_id = p.id) AS granted
		 FROM permissions p
		 WHERE `+where+`
		 ORDER BY p.id ASC LIMIT $3 OFFSET $4`,
		roleID, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []MatrixEntry
	for rows.Next() {
		var e MatrixEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.DisplayName, &e.Description, &e.CreatedAt, &e.UpdatedAt, &e.Granted); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) InsertPermission(ctx context.Context, name, displayName, description string) (Permission, error) {
	row := t.tx.QueryRow(ctx,
		`INSERT INTO permissions (name, display_name, description) VALUES ($1, $2, $3) RETURNING `+permissionColumns,
		name, displayName, description)
	p, err := scanPermission(row)
	if err != nil {
		return Permission{}, mapPGError(err)
	}
	return p, nil
}

func (t *txRepo) InsertGrant(ctx context.Context, roleID, permissionID int64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO role_permission (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return mapPGError(err)
}

func (t *txRepo) DeletePermission(ctx context.Context, id int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepo) DeleteGrantsForPermission(ctx context.Context, permissionID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM role_permission WHERE permission_id = $1`, permissionID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.DisplayName, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

func scanRole(row rowScanner) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// mapPGError translates PostgreSQL constraint violations into domain
// sentinels so handlers can surface them as validation errors.
func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicateName
		case "23503":
			return shared.ErrRoleNotFound
		}
	}
	return err
}
