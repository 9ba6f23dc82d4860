// Package grpc exposes the session service as authkeeper.AuthService over
// gRPC, together with the standard health service.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionManager is what the front end needs from the session service.
type SessionManager interface {
	Register(ctx context.Context, email, password string) (*services.TokenPair, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken, callerUserID string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// TokenParser validates access tokens. *auth.Signer satisfies it.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type GRPCServer struct {
	pb.UnimplementedAuthServiceServer
	address  string
	sessions SessionManager
	tokens   TokenParser
	logger   logging.Logger
	health   *health.Server
}

func NewGRPCServer(a string, l logging.Logger, sessions SessionManager, tokens TokenParser) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		sessions: sessions,
		tokens:   tokens,
		health:   health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor),
	)

	pb.RegisterAuthServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(pb.AuthService_ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is canceled, then reports
// NOT_SERVING and stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	<-stopped
	return nil
}
