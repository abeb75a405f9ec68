package statusrpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/yardwatch/internal/yard"
)

// Client calls the status service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to a status service without transport security. The
// service is meant for the plant network.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	return grpc.NewClient(addr, opts...)
}

// Get fetches the last published status.
func (c *Client) Get(ctx context.Context) (yard.Status, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getMethod, &emptypb.Empty{}, out); err != nil {
		return yard.Status{}, err
	}
	return FromStruct(out)
}

// Watch calls fn for every status the server streams. It returns nil when
// the server ends the stream, and fn's error if fn fails.
func (c *Client) Watch(ctx context.Context, fn func(yard.Status) error) error {
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		st, err := FromStruct(msg)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}
