// Package grpcapi serves change notifications as a gRPC server stream.
//
// The service has one method and its messages are google.protobuf.Struct, so the
// descriptor is written out here instead of generated from a .proto file.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "contentflow.v1.SyncService"
	WatchMethod = "/contentflow.v1.SyncService/Watch"
)

type SyncServiceServer interface {
	Watch(req *structpb.Struct, stream SyncService_WatchServer) error
}

type SyncService_WatchServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type syncServiceWatchServer struct {
	grpc.ServerStream
}

func (x *syncServiceWatchServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func _SyncService_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(SyncServiceServer).Watch(m, &syncServiceWatchServer{stream})
}

var SyncService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _SyncService_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "contentflow/v1/sync.proto",
}

func RegisterSyncServiceServer(s grpc.ServiceRegistrar, srv SyncServiceServer) {
	s.RegisterService(&SyncService_ServiceDesc, srv)
}

type SyncServiceClient interface {
	Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (SyncService_WatchClient, error)
}

type SyncService_WatchClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type syncServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncServiceClient(cc grpc.ClientConnInterface) SyncServiceClient {
	return &syncServiceClient{cc}
}

func (c *syncServiceClient) Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (SyncService_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &SyncService_ServiceDesc.Streams[0], WatchMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &syncServiceWatchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type syncServiceWatchClient struct {
	grpc.ClientStream
}

func (x *syncServiceWatchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
