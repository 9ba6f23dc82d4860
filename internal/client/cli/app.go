package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/config"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	reader      *bufio.Reader
	out         io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing session database: %w", err)
	}

	apiClient, err := client.NewAuthClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	as := services.NewAuthService(apiClient, db)

	return &App{config: c, authService: as, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)

	fmt.Fprintln(a.out, "authkeeper CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	_, err := a.authService.Current(ctx)
	return err == nil
}

func (a *App) getStatus(ctx context.Context) string {
	s, err := a.authService.Current(ctx)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("(%s)", s.Email)
}

// withTimeout bounds a single server call.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
