package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/session"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for an email and password, creates the account and keeps
// the returned session.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.authService.Register(ctx, email, password); err != nil {
		a.report("Registration failed", err)
		return err
	}

	fmt.Fprintln(a.out, "Registered and logged in as", email)
	return nil
}

// Login prompts for credentials and replaces the stored session.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.authService.Login(ctx, email, password); err != nil {
		a.report("Login failed", err)
		return err
	}

	fmt.Fprintln(a.out, "Logged in as", email)
	return nil
}

// Refresh rotates the stored token pair.
func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.authService.Refresh(ctx); err != nil {
		a.report("Refresh failed", err)
		return err
	}

	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

// Logout revokes the stored refresh token on the server.
func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.authService.Logout(ctx); err != nil {
		a.report("Logout failed", err)
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Status prints the current session.
func (a *App) Status(ctx context.Context) error {
	s, err := a.authService.Current(ctx)
	if err != nil {
		a.report("No session", err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s since %s\n", s.Email, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) report(prefix string, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(a.out, prefix+": not logged in")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.out, prefix+": session is no longer valid, please log in again")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, prefix+": server unavailable")
	default:
		fmt.Fprintf(a.out, "%s: %v\n", prefix, err)
	}
}
