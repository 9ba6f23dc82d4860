// Package client is the gRPC client of authkeeper.AuthService used by the CLI.
package client

import (
	"context"
)

// Tokens is the pair returned by the server on register, login and refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Client interface {
	Close() error
	Register(ctx context.Context, email string, password []byte) (*Tokens, error)
	Login(ctx context.Context, email string, password []byte) (*Tokens, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}
