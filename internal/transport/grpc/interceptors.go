package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/lobby-chat/pkg/httputil"
	"github.com/cwrk-planet/lobby-chat/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// DefaultCallTimeout bounds unary calls that arrive without a deadline.
const DefaultCallTimeout = 10 * time.Second

// requestIDKey is read from incoming metadata, same name as the HTTP header.
var requestIDKey = httputil.HeaderRequestID

// UnaryServerInterceptor logs each call, turns panics into codes.Internal
// and applies DefaultCallTimeout when the caller set no deadline.
func UnaryServerInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
			defer cancel()
		}

		call := newCall(ctx, log, "unary", info.FullMethod)
		defer func() {
			if r := recover(); r != nil {
				err = call.panicked(r)
			}
			call.done(err)
		}()
		return handler(ctx, req)
	}
}

// StreamServerInterceptor does the same for streams, health Watch included.
func StreamServerInterceptor(log *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		call := newCall(ss.Context(), log, "stream", info.FullMethod)
		defer func() {
			if r := recover(); r != nil {
				err = call.panicked(r)
			}
			call.done(err)
		}()
		return handler(srv, ss)
	}
}

type call struct {
	log   *slog.Logger
	kind  string
	start time.Time
}

func newCall(ctx context.Context, log *slog.Logger, kind, method string) *call {
	args := []any{"method", method}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		args = append(args, "peer", p.Addr.String())
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(requestIDKey); len(ids) > 0 && ids[0] != "" {
			args = append(args, "request_id", ids[0])
		}
	}
	args = append(args, logger.ArgsFromCtx(ctx)...)

	return &call{log: log.With(args...), kind: kind, start: time.Now()}
}

func (c *call) panicked(r any) error {
	c.log.Error("grpc "+c.kind+" panic", "panic", r, "stack", string(debug.Stack()))
	return status.Error(codes.Internal, "internal server error")
}

// done logs the outcome. OK, Canceled and NotFound stay at debug.
func (c *call) done(err error) {
	code := status.Code(err)
	lvl := slog.LevelDebug
	switch code {
	case codes.OK, codes.Canceled, codes.NotFound:
	case codes.Internal, codes.Unknown, codes.DataLoss:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	c.log.Log(context.Background(), lvl, "grpc "+c.kind,
		"code", code.String(),
		"dur_ms", time.Since(c.start).Milliseconds())
}
