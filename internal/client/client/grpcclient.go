package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.AuthServiceClient
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

// NewAuthClient dials endpointURL lazily; extra options are appended to the
// insecure transport default.
func NewAuthClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewAuthServiceClient(conn)
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, email string, password []byte) (*Tokens, error) {
	resp, err := s.client.Register(ctx, &pb.RegisterRequest{Email: email, Password: string(password)})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (s *GRPCClient) Login(ctx context.Context, email string, password []byte) (*Tokens, error) {
	resp, err := s.client.Login(ctx, &pb.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (s *GRPCClient) Refresh(ctx context.Context, accessToken, refreshToken string) (*Tokens, error) {
	ctx = withAccessToken(ctx, accessToken)

	resp, err := s.client.Refresh(ctx, &pb.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, s.mapError(err)
	}
	return &Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (s *GRPCClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	ctx = withAccessToken(ctx, accessToken)

	if _, err := s.client.Logout(ctx, &pb.LogoutRequest{RefreshToken: refreshToken}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	}
	return err
}
