package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-rbac/aegis/internal/rbac"
	"github.com/aegis-rbac/aegis/internal/shared"
)

// Repository defines persistence operations for user management.
type Repository interface {
	Create(ctx context.Context, name, email, passwordHash string, roleID int64) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	List(ctx context.Context, limit, offset int) ([]User, int, error)
	Update(ctx context.Context, id int64, name, email string) (User, error)
	Delete(ctx context.Context, id int64) (int64, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RoleOf(ctx context.Context, userID int64) (rbac.Role, error)
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

const userColumns = "id, name, email, role_id, email_verified_at, created_at, updated_at"

// Create inserts a new user.
func (r *PGRepository) Create(ctx context.Context, name, email, passwordHash string, roleID int64) (User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role_id) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		name, email, passwordHash, roleID)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapUserPGError(err)
	}
	return u, nil
}

// Get fetches a user by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// List returns one page of users ordered by ID plus the total count.
func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Update changes name and email.
func (r *PGRepository) Update(ctx context.Context, id int64, name, email string) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, name, email)
	u, err := scanUser(row)
	if err != nil {
		return User{}, mapUserPGError(err)
	}
	return u, nil
}

// Delete removes a user and returns the number of deleted rows.
func (r *PGRepository) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AssignRole replaces the user's role. The role_id foreign key rejects
// nonexistent roles, mapped to ErrRoleNotFound.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET role_id = $2, updated_at = now() WHERE id = $1`, userID, roleID)
	if err != nil {
		return mapUserPGError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RoleOf resolves the role assigned to the user.
func (r *PGRepository) RoleOf(ctx context.Context, userID int64) (rbac.Role, error) {
	var role rbac.Role
	err := r.pool.QueryRow(ctx,
		`SELECT r.id, r.name, r.display_name, r.description, r.created_at, r.updated_at
		 FROM roles r JOIN users u ON u.role_id = r.id WHERE u.id = $1`, userID).
		Scan(&role.ID, &role.Name, &role.DisplayName, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, shared.ErrNotFound
		}
		return rbac.Role{}, err
	}
	return role, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.RoleID, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func mapUserPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicateEmail
		case "23503":
			return shared.ErrRoleNotFound
		}
	}
	return err
}
