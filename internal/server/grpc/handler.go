package grpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/chatrpc"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/relay"
)

// streamConn adapts a server stream to relay.Conn.
type streamConn struct {
	stream grpc.ServerStream
}

func (c streamConn) Send(_ context.Context, env wire.Envelope) error {
	return chatrpc.SendEnvelope(c.stream, env)
}

func (c streamConn) Recv() (wire.Envelope, error) {
	return chatrpc.RecvEnvelope(c.stream)
}

// Connect joins the topic named in the stream metadata. Headers are sent
// once the join is accepted; clients wait for them before reporting the
// channel as connected.
func (s *GRPCServer) Connect(stream grpc.ServerStream) error {
	ctx := stream.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthenticated")
	}

	var topic string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(chatrpc.TopicHeader); len(v) > 0 {
			topic = v[0]
		}
	}
	if _, ok := common.ConversationFromTopic(topic); !ok {
		return status.Errorf(codes.InvalidArgument, "invalid topic %q", topic)
	}

	if err := stream.SendHeader(metadata.Pairs(chatrpc.TopicHeader, topic)); err != nil {
		return err
	}

	err := s.relay.Serve(ctx, userID, topic, streamConn{stream: stream})
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled), status.Code(err) == codes.Canceled:
		return nil
	case errors.Is(err, relay.ErrEvicted):
		return status.Error(codes.ResourceExhausted, "subscriber too slow")
	default:
		s.logger.Error(ctx, "stream failed", "topic", topic, "user", userID, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
