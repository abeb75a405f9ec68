// Package statusrpc streams the published yard status over gRPC. Messages
// are protobuf well-known types carrying the same JSON shape as the HTTP
// API, so no generated code is needed on either side.
package statusrpc

import (
	"context"
	"fmt"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/yardwatch/internal/monitoring"
	"github.com/banshee-data/yardwatch/internal/yard"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "yardwatch.StatusService"

const (
	getMethod   = "/" + ServiceName + "/Get"
	watchMethod = "/" + ServiceName + "/Watch"
)

// StatusServer is the service implemented by Server.
type StatusServer interface {
	Get(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Watch(req *emptypb.Empty, stream grpc.ServerStream) error
}

// Source hands out status subscriptions. api.StatusHub implements it.
type Source interface {
	Subscribe() chan yard.Status
	Unsubscribe(ch chan yard.Status)
}

// Snapshotter returns the most recent status. yard.Engine implements it.
type Snapshotter interface {
	LastStatus() yard.Status
}

// DefaultMaxClients bounds concurrent Watch streams.
const DefaultMaxClients = 8

// Server implements StatusServer over a status source.
type Server struct {
	src        Source
	last       Snapshotter
	maxClients int32
	clients    atomic.Int32
}

var _ StatusServer = (*Server)(nil)

// NewServer returns a Server. maxClients <= 0 means DefaultMaxClients.
func NewServer(src Source, last Snapshotter, maxClients int) *Server {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Server{src: src, last: last, maxClients: int32(maxClients)}
}

// Register adds the status service to gs.
func Register(gs *grpc.Server, s StatusServer) {
	gs.RegisterService(&serviceDesc, s)
}

// Clients returns the number of open Watch streams.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Get returns the last published status.
func (s *Server) Get(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.last.LastStatus()
	if st.TS == 0 {
		return nil, status.Error(codes.NotFound, "no status published yet")
	}
	msg, err := ToStruct(st)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// Watch streams every published status until the client goes away or the
// source closes.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStream) error {
	if n := s.clients.Add(1); n > s.maxClients {
		s.clients.Add(-1)
		return status.Error(codes.ResourceExhausted, fmt.Sprintf("too many status clients (max %d)", s.maxClients))
	}
	defer s.clients.Add(-1)

	ch := s.src.Subscribe()
	defer s.src.Unsubscribe(ch)

	ctx := stream.Context()
	monitoring.Debugf("[statusrpc] watch started (%d clients)", s.Clients())
	for {
		select {
		case <-ctx.Done():
			monitoring.Debugf("[statusrpc] watch cancelled")
			return ctx.Err()
		case st, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := ToStruct(st)
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.SendMsg(msg); err != nil {
				monitoring.Debugf("[statusrpc] send error: %v", err)
				return err
			}
		}
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: getHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "yardwatch/status",
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StatusServer).Get(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(StatusServer).Watch(in, stream)
}
