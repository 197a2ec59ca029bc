// Package chatrpc describes the gRPC chat service. Each stream message is a
// wrapperspb.BytesValue holding one JSON wire.Envelope, so both transports
// share the same frames and no generated stubs are needed.
package chatrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

const (
	ServiceName   = "auctionchat.Chat"
	ConnectMethod = "/" + ServiceName + "/Connect"

	// TopicHeader carries the conversation topic in stream metadata. The
	// relay echoes it in the response headers once the join is accepted.
	TopicHeader = "topic"
)

// ChatServer serves one bidirectional envelope stream per joined topic.
type ChatServer interface {
	Connect(stream grpc.ServerStream) error
}

// ConnectStreamDesc is used by clients to open the Connect stream.
var ConnectStreamDesc = grpc.StreamDesc{
	StreamName:    "Connect",
	ServerStreams: true,
	ClientStreams: true,
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Connect",
		Handler:       connectHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "auctionchat/chat",
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ChatServer).Connect(stream)
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Stream is satisfied by grpc.ClientStream and grpc.ServerStream.
type Stream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// SendEnvelope writes env as one stream message.
func SendEnvelope(s Stream, env wire.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.SendMsg(wrapperspb.Bytes(b))
}

// RecvEnvelope blocks for the next stream message. Stream errors are
// returned unchanged so callers can inspect their status.
func RecvEnvelope(s Stream) (wire.Envelope, error) {
	var (
		msg wrapperspb.BytesValue
		env wire.Envelope
	)
	if err := s.RecvMsg(&msg); err != nil {
		return env, err
	}
	if err := json.Unmarshal(msg.GetValue(), &env); err != nil {
		return wire.Envelope{}, fmt.Errorf("%w: envelope: %v", wire.ErrInvalidPayload, err)
	}
	return env, nil
}
