// Package services contains application services for the authkeeper client.
// AuthService talks to the server and keeps the resulting session in the
// local database so refresh and logout work across CLI runs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Register and Login replace the stored session, Refresh rotates it and
// Logout revokes it on the server and forgets it locally.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*models.Session, error)
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	now    func() time.Time
}

func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db, now: time.Now}
}

func (a *authService) getSessionRepo(db dbx.DBTX) session.Repository {
	return session.NewSQLiteRepository(db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte) error {
	tokens, err := a.client.Register(ctx, email, password)
	if err != nil {
		return err
	}
	return a.saveSession(ctx, email, tokens)
}

func (a *authService) Login(ctx context.Context, email string, password []byte) error {
	tokens, err := a.client.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	return a.saveSession(ctx, email, tokens)
}

// Refresh exchanges the stored refresh token for a new pair. The server
// consumes the old token even when saving the new one fails locally.
func (a *authService) Refresh(ctx context.Context) error {
	current, err := a.Current(ctx)
	if err != nil {
		return err
	}

	tokens, err := a.client.Refresh(ctx, current.AccessToken, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh error: %w", err)
	}
	return a.saveSession(ctx, current.Email, tokens)
}

// Logout revokes the stored refresh token. The local session is dropped even
// when the server rejects the access token, since it can no longer be used.
func (a *authService) Logout(ctx context.Context) error {
	current, err := a.Current(ctx)
	if err != nil {
		return err
	}

	err = a.client.Logout(ctx, current.AccessToken, current.RefreshToken)
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("logout error: %w", err)
	}

	return a.getSessionRepo(a.db).Clear(ctx)
}

func (a *authService) Current(ctx context.Context) (*models.Session, error) {
	return a.getSessionRepo(a.db).Load(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return errors.Join(a.client.Close(), a.db.Close())
}

func (a *authService) saveSession(ctx context.Context, email string, tokens *client.Tokens) error {
	s := &models.Session{
		Email:        email,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UpdatedAt:    a.now(),
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getSessionRepo(tx)
		if err := repo.Clear(ctx); err != nil {
			return err
		}
		return repo.Save(ctx, s)
	})
}
