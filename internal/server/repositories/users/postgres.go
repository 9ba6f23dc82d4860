package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user, assigning a fresh id when none is set.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	u.Email = models.NormalizeEmail(u.Email)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	query :=
		`INSERT INTO users (id, email, password_hash, role)
         VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.PasswordHash, string(u.Role)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return &u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, password_hash, role, created_at, updated_at FROM users
		 WHERE email = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, password_hash, role, created_at, updated_at FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	u.Email = models.NormalizeEmail(u.Email)

	query :=
		`UPDATE users SET email = $2, password_hash = $3, role = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.PasswordHash, string(u.Role)).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, mapWriteError(err)
	}

	return &u, nil
}

// Delete removes the user; their refresh tokens go with them (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	n, err := dbx.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var role string
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.Role = models.Role(role)
	return user, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &common.ConflictError{Field: "email"}
	}
	return fmt.Errorf("db error: %w", err)
}
