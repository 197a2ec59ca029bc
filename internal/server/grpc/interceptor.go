package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/auctionchat/internal/chatrpc"
	"github.com/dmitrijs2005/auctionchat/internal/common"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the user id stored by the interceptor.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// authStream carries the authenticated context into the handler.
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }

func (s *GRPCServer) accessTokenInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {

	if info.FullMethod != chatrpc.ConnectMethod {
		return handler(srv, ss)
	}

	ctx := ss.Context()

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := s.users.Authenticate(accessToken)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return status.Error(codes.Unauthenticated, "token expired")
		}
		return status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(srv, &authStream{ServerStream: ss, ctx: context.WithValue(ctx, userIDKey, userID)})
}
