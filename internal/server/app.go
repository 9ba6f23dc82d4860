// Package server initializes and runs the authkeeper server: storage,
// session service, expired token reclaimer, metrics endpoint and gRPC API,
// all stopped together on SIGINT/SIGTERM.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/passwords"
	"github.com/dmitrijs2005/authkeeper/internal/server/reclaimer"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/telemetry"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

const serviceName = "authkeeper"

type App struct {
	config          *config.Config
	logger          logging.Logger
	repomanager     repomanager.RepositoryManager
	metrics         *metrics.Metrics
	grpcServer      *gs.GRPCServer
	reclaimer       *reclaimer.Reclaimer
	shutdownTracing telemetry.ShutdownFunc
}

// NewApp builds every component from c. Storage is opened and migrated here,
// so a bad DSN fails fast.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, c.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing init error: %w", err)
	}

	rm, err := repomanager.New(ctx, c.DatabaseDSN)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, sessions are kept in memory")
	}

	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher, err := passwords.New(c.PasswordHasher)
	if err != nil {
		_ = rm.Close()
		_ = shutdownTracing(ctx)
		return nil, err
	}

	m := metrics.New()
	signer := auth.NewSigner([]byte(c.SecretKey), c.Issuer, c.Audience, c.AccessTokenValidityDuration)
	sessions := services.NewSessionService(rm, hasher, signer, c, logger, m)

	return &App{
		config:          c,
		logger:          logger,
		repomanager:     rm,
		metrics:         m,
		grpcServer:      gs.NewGRPCServer(c.EndpointAddrGRPC, logger, sessions, signer),
		reclaimer:       reclaimer.New(rm.RefreshTokens(rm.Conn()), c.CleanupEnabled, c.CleanupInterval, logger, m),
		shutdownTracing: shutdownTracing,
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startMetricsServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.MetricsAddr == "" {
		return
	}
	if err := app.metrics.Serve(ctx, app.config.MetricsAddr, app.logger); err != nil {
		app.logger.Error(ctx, "metrics server failed", "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is canceled, a signal arrives or a server fails, then
// releases storage and flushes traces.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startMetricsServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.reclaimer.Run(ctx)
	}()

	wg.Wait()

	app.shutdown()
}

func (app *App) shutdown() {
	ctx := context.Background()

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "closing storage failed", "error", err)
	}
	if err := app.shutdownTracing(ctx); err != nil {
		app.logger.Error(ctx, "flushing traces failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
