package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

const (
	keyEmail        = "email"
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUpdatedAt    = "updated_at"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load returns ErrNoSession unless a refresh token is stored.
func (r *SQLiteRepository) Load(ctx context.Context) (*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM metadata`)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[key] = string(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metadata rows: %w", err)
	}

	if values[keyRefreshToken] == "" {
		return nil, ErrNoSession
	}

	s := &models.Session{
		Email:        values[keyEmail],
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
	}
	if ts := values[keyUpdatedAt]; ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			s.UpdatedAt = t
		}
	}
	return s, nil
}

// Save upserts every session field. Run it inside a transaction to replace
// the session atomically.
func (r *SQLiteRepository) Save(ctx context.Context, s *models.Session) error {
	fields := [][2]string{
		{keyEmail, s.Email},
		{keyAccessToken, s.AccessToken},
		{keyRefreshToken, s.RefreshToken},
		{keyUpdatedAt, s.UpdatedAt.UTC().Format(time.RFC3339Nano)},
	}
	for _, f := range fields {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, f[0], []byte(f[1]))
		if err != nil {
			return fmt.Errorf("failed to set metadata[%s]: %w", f[0], err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata`); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}
