package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC statuses. Internal details are logged,
// never returned.
func (s *GRPCServer) toStatus(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, common.ErrAuthentication),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "authentication failed")
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "user not found")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	s.logger.Error(ctx, "request failed", "op", op, "error", err)
	if errors.Is(err, common.ErrRotationFailed) {
		return status.Error(codes.Internal, "token rotation failed")
	}
	return status.Error(codes.Internal, "internal error")
}
