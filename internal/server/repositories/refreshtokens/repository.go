// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository stores opaque refresh tokens keyed by their value.
type Repository interface {
	// Create inserts t. The token value must be unique.
	Create(ctx context.Context, t *models.RefreshToken) error
	// Find returns the row for token, or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete removes token and reports whether a row was actually removed.
	// Of two concurrent deletes of the same token exactly one sees true.
	Delete(ctx context.Context, token string) (bool, error)
	// DeleteExpired removes every token with an expiry strictly before now
	// in a single statement and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
