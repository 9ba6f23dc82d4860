package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ  = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+created_at,\s*updated_at\s*$`
	byEmailQ = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*role,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	byIDQ    = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*role,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	updateQ  = `(?s)^UPDATE\s+users\s+SET\s+email\s*=\s*\$2,\s*password_hash\s*=\s*\$3,\s*role\s*=\s*\$4,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+created_at,\s*updated_at\s*$`
	deleteQ  = `(?s)^DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func userRows(u models.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at", "updated_at"}).
		AddRow(u.ID, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
}

func TestCreate_NormalizesEmailAndAssignsID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(insertQ).
		WithArgs(sqlmock.AnyArg(), "bob@example.com", "hash", "user").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	in := &models.User{Email: "  Bob@Example.COM ", PasswordHash: "hash"}
	got, err := repo.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = uuid.Parse(got.ID)
	assert.NoError(t, err, "id must be a uuid")
	assert.Equal(t, "bob@example.com", got.Email)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, ts, got.CreatedAt)
	assert.Equal(t, "", in.ID, "input must not be mutated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmailIsConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs(sqlmock.AnyArg(), "bob@example.com", "hash", "user").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{Email: "bob@example.com", PasswordHash: "hash"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))

	var ce *common.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "email", ce.Field)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", PasswordHash: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	assert.False(t, errors.Is(err, common.ErrConflict))
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now()
	want := models.User{ID: "u1", Email: "bob@example.com", PasswordHash: "h", Role: models.RoleAdmin, CreatedAt: ts, UpdatedAt: ts}

	mock.ExpectQuery(byEmailQ).
		WithArgs("bob@example.com").
		WillReturnRows(userRows(want))

	got, err := repo.GetUserByEmail(context.Background(), "BOB@example.com ")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailQ).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}

func TestGetUserByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	want := models.User{ID: "u1", Email: "a@b.c", PasswordHash: "h", Role: models.RoleUser}
	mock.ExpectQuery(byIDQ).WithArgs("u1").WillReturnRows(userRows(want))
	mock.ExpectQuery(byIDQ).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(byIDQ).WithArgs("u3").WillReturnError(errors.New("db err"))

	got, err := repo.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", got.Email)

	_, err = repo.GetUserByID(context.Background(), "u2")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	_, err = repo.GetUserByID(context.Background(), "u3")
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectQuery(updateQ).
		WithArgs("u1", "new@example.com", "h2", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))
	mock.ExpectQuery(updateQ).
		WithArgs("u2", "x@example.com", "h", "user").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(updateQ).
		WithArgs("u3", "taken@example.com", "h", "user").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	got, err := repo.Update(context.Background(), &models.User{ID: "u1", Email: " NEW@example.com", PasswordHash: "h2", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, ts, got.UpdatedAt)

	_, err = repo.Update(context.Background(), &models.User{ID: "u2", Email: "x@example.com", PasswordHash: "h", Role: models.RoleUser})
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	_, err = repo.Update(context.Background(), &models.User{ID: "u3", Email: "taken@example.com", PasswordHash: "h", Role: models.RoleUser})
	assert.True(t, errors.Is(err, common.ErrConflict))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQ).WithArgs("u2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQ).WithArgs("u3").WillReturnError(errors.New("db err"))

	require.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.True(t, errors.Is(repo.Delete(context.Background(), "u2"), common.ErrorNotFound))
	assert.Regexp(t, `db error: .*db err`, repo.Delete(context.Background(), "u3").Error())
}
