package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newTestServer() *GRPCServer {
	return NewGRPCServer("", logging.Nop{}, nil, newSigner())
}

func TestInterceptor_PublicMethodSkipsToken(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: pb.AuthService_Login_FullMethodName}

	called := false
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_ProtectedMethod(t *testing.T) {
	s := newTestServer()
	info := &grpc.UnaryServerInfo{FullMethod: pb.AuthService_Refresh_FullMethodName}
	mustNotRun := func(context.Context, any) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, mustNotRun)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "bad"))
	_, err = s.accessTokenInterceptor(ctx, nil, info, mustNotRun)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := newSigner().Issue("user-1", models.RoleUser)
	require.NoError(t, err)
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, token))

	var seen string
	_, err = s.accessTokenInterceptor(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		seen, _ = UserIDFromContext(ctx)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", seen)
}

func TestUserIDFromContext_Missing(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestToStatus(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrAuthentication, codes.Unauthenticated},
		{fmt.Errorf("x: %w", common.ErrTokenExpired), codes.Unauthenticated},
		{&common.ValidationError{Field: "email", Reason: "bad"}, codes.InvalidArgument},
		{&common.ConflictError{Field: "email"}, codes.AlreadyExists},
		{fmt.Errorf("%w: %w", common.ErrRotationFailed, common.ErrorNotFound), codes.NotFound},
		{fmt.Errorf("%w: %w", common.ErrRotationFailed, errors.New("db down")), codes.Internal},
		{errors.New("boom"), codes.Internal},
		{context.Canceled, codes.Canceled},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, status.Code(s.toStatus(ctx, "op", tc.err)), tc.err.Error())
	}

	st := status.Convert(s.toStatus(ctx, "op", errors.New("password=hunter2")))
	assert.NotContains(t, st.Message(), "hunter2")
}
