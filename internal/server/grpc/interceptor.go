package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	pb "github.com/dmitrijs2005/authkeeper/internal/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// methods that need a valid access token
var protectedMethods = map[string]bool{
	pb.AuthService_Refresh_FullMethodName: true,
	pb.AuthService_Logout_FullMethodName:  true,
}

// UserIDFromContext returns the caller id placed by the access token
// interceptor.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing access token")
	}

	claims, err := s.tokens.Parse(accessToken)
	if err != nil {
		s.logger.Info(ctx, "access token rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid access token")
	}

	return handler(context.WithValue(ctx, userIDKey, claims.Subject), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc finished",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start).String())
	return resp, err
}
