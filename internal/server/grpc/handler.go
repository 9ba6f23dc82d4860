package grpc

import (
	"context"

	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *GRPCServer) Register(ctx context.Context, req *pb.RegisterRequest) (*pb.AuthResponse, error) {
	pair, err := s.sessions.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "register", err)
	}

	s.logger.Info(ctx, "user registered")
	return &pb.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *pb.LoginRequest) (*pb.AuthResponse, error) {
	pair, err := s.sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus(ctx, "login", err)
	}

	return &pb.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *pb.RefreshRequest) (*pb.AuthResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token: must not be empty")
	}

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}

	pair, err := s.sessions.Refresh(ctx, req.RefreshToken, userID)
	if err != nil {
		return nil, s.toStatus(ctx, "refresh", err)
	}

	return &pb.AuthResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *pb.LogoutRequest) (*pb.LogoutResponse, error) {
	if req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token: must not be empty")
	}

	if err := s.sessions.Logout(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, "logout", err)
	}

	return &pb.LogoutResponse{}, nil
}
