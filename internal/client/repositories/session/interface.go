// Package session persists the CLI's current session in the local SQLite
// database as key/value rows of the metadata table.
package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/client/models"
)

var ErrNoSession = errors.New("not logged in")

type Repository interface {
	Load(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
}
