package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestLoad_Empty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.Load(context.Background())
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestSaveLoadOverwrite(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, &models.Session{Email: "a@example.com", AccessToken: "a1", RefreshToken: "r1", UpdatedAt: at}))
	require.NoError(t, r.Save(ctx, &models.Session{Email: "a@example.com", AccessToken: "a2", RefreshToken: "r2", UpdatedAt: at}))

	got, err := r.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Session{Email: "a@example.com", AccessToken: "a2", RefreshToken: "r2", UpdatedAt: at}, got)
}

func TestClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, &models.Session{Email: "a@example.com", AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx))

	_, err := r.Load(ctx)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestSave_RollsBackWithTx(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	require.NoError(t, NewSQLiteRepository(db).Save(ctx, &models.Session{Email: "old@example.com", AccessToken: "a", RefreshToken: "r"}))

	boom := errors.New("boom")
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := NewSQLiteRepository(tx).Save(ctx, &models.Session{Email: "new@example.com", AccessToken: "b", RefreshToken: "s"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := NewSQLiteRepository(db).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", got.Email)
	assert.Equal(t, "r", got.RefreshToken)
}
