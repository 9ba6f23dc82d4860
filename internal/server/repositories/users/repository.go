// Package users stores user records. Emails are normalized here, at the
// storage boundary, so every caller looks users up by the same key.
package users

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository is the user-record store.
//
// Create and Update return *common.ConflictError (errors.Is common.ErrConflict)
// when the email is taken. Lookups, Update and Delete return
// common.ErrorNotFound for unknown users.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
