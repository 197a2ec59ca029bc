// Package grpcstream carries conversation channels over a gRPC
// bidirectional stream.
package grpcstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/chatrpc"
	"github.com/dmitrijs2005/auctionchat/internal/common"
)

type Dialer struct {
	conn  *grpc.ClientConn
	token func() string
	opts  transport.Options
}

var _ transport.Dialer = (*Dialer)(nil)

// NewDialer creates a client for target. Extra dial options are appended,
// which lets tests supply an in-memory context dialer.
func NewDialer(target string, token func() string, opts transport.Options, dialOpts ...grpc.DialOption) (*Dialer, error) {
	d := &Dialer{token: token, opts: opts}
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStreamInterceptor(d.accessTokenInterceptor),
	}
	conn, err := grpc.NewClient(target, append(base, dialOpts...)...)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return d, nil
}

func (d *Dialer) Close() error {
	return d.conn.Close()
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

func (d *Dialer) accessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if d.token != nil {
		if tok := d.token(); tok != "" {
			ctx = withAccessToken(ctx, tok)
		}
	}
	return streamer(ctx, desc, cc, method, opts...)
}

func (d *Dialer) Channel(topic string) transport.Channel {
	return transport.NewPeer(topic, d.connectFunc(topic), d.opts)
}

func (d *Dialer) connectFunc(topic string) transport.ConnectFunc {
	return func(ctx context.Context) (transport.Conn, error) {
		sctx, cancel := context.WithCancel(ctx)
		sctx = metadata.AppendToOutgoingContext(sctx, chatrpc.TopicHeader, topic)

		stream, err := d.conn.NewStream(sctx, &chatrpc.ConnectStreamDesc, chatrpc.ConnectMethod)
		if err != nil {
			cancel()
			return nil, mapError(err)
		}
		if err := awaitJoin(stream); err != nil {
			cancel()
			return nil, err
		}
		return &conn{stream: stream, cancel: cancel}, nil
	}
}

// errRefused is returned when the stream ends before the relay accepted
// the join but without an error status.
var errRefused = errors.New("stream closed before join")

// awaitJoin waits for the headers the relay sends once the join is
// accepted. A stream refused earlier carries no headers, only the final
// status, which RecvMsg reports.
func awaitJoin(stream grpc.ClientStream) error {
	md, err := stream.Header()
	if err != nil {
		return mapError(err)
	}
	if md != nil {
		return nil
	}
	if _, err := chatrpc.RecvEnvelope(stream); err != nil && !errors.Is(err, io.EOF) {
		return mapError(err)
	}
	return fmt.Errorf("%w: %w", transport.ErrUnavailable, errRefused)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", transport.ErrUnauthorized, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", transport.ErrBadTopic, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", transport.ErrUnavailable, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

type conn struct {
	stream grpc.ClientStream
	cancel context.CancelFunc
	once   sync.Once
}

func (c *conn) Send(_ context.Context, env wire.Envelope) error {
	if err := chatrpc.SendEnvelope(c.stream, env); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *conn) Recv() (wire.Envelope, error) {
	env, err := chatrpc.RecvEnvelope(c.stream)
	if err != nil {
		return env, mapError(err)
	}
	return env, nil
}

func (c *conn) Close() error {
	c.once.Do(func() {
		_ = c.stream.CloseSend()
		c.cancel()
	})
	return nil
}
