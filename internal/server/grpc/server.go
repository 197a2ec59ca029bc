// Package grpc exposes conversation channels as a gRPC bidirectional
// stream (chatrpc.ConnectMethod) backed by the relay.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/auctionchat/internal/chatrpc"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
	"github.com/dmitrijs2005/auctionchat/internal/server/relay"
)

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

type GRPCServer struct {
	address string
	users   Authenticator
	relay   *relay.Handler
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, users Authenticator, rh *relay.Handler) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  logging.OrNop(l).With("module", "grpc_server"),
		users:   users,
		relay:   rh,
	}
}

// NewServer builds a gRPC server with the chat service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainStreamInterceptor(s.accessTokenInterceptor),
	)
	chatrpc.Register(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		// open streams would block GracefulStop forever
		srv.Stop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}

	return nil
}
