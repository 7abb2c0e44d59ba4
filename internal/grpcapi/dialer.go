package grpcapi

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"contentflow/internal/common"
	"contentflow/internal/syncchannel"
)

// Dialer opens Watch streams; it is the gRPC transport for syncchannel.Push.
type Dialer struct {
	client SyncServiceClient
	token  string
	closer io.Closer
}

var _ syncchannel.Dialer = (*Dialer)(nil)

func NewDialer(addr, token string) (*Dialer, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, &common.TransportError{Op: "grpc connect", Err: err}
	}
	d := NewDialerWithConn(conn, token)
	d.closer = conn
	return d, nil
}

// NewDialerWithConn uses an existing connection, which the caller keeps ownership of.
func NewDialerWithConn(cc grpc.ClientConnInterface, token string) *Dialer {
	return &Dialer{client: NewSyncServiceClient(cc), token: token}
}

func (d *Dialer) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// Dial returns once the server has accepted the stream and sent its connected message,
// so auth and scope errors surface here rather than on the first Recv.
func (d *Dialer) Dial(ctx context.Context, scope string) (syncchannel.NotificationStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	if d.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+d.token)
	}
	if id := common.RequestIDFromContext(ctx); id != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "x-request-id", id)
	}

	req, err := structpb.NewStruct(map[string]interface{}{"scope": scope})
	if err != nil {
		cancel()
		return nil, common.NewValidationError("scope", "%v", err)
	}
	stream, err := d.client.Watch(streamCtx, req)
	if err != nil {
		cancel()
		return nil, fromStatus("grpc watch", err)
	}

	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, fromStatus("grpc watch", err)
	}
	if n := FromStruct(first); n.Type != common.NotificationConnected {
		cancel()
		return nil, &common.TransportError{Op: "grpc watch", Err: errors.New("stream did not start with a connected message")}
	}
	return &watchStream{stream: stream, cancel: cancel}, nil
}

type watchStream struct {
	stream SyncService_WatchClient
	cancel context.CancelFunc
}

func (w *watchStream) Recv() (common.ChangeNotification, error) {
	m, err := w.stream.Recv()
	if err != nil {
		return common.ChangeNotification{}, fromStatus("grpc recv", err)
	}
	return FromStruct(m), nil
}

func (w *watchStream) Close() error {
	w.cancel()
	return nil
}

// fromStatus maps a gRPC status onto the shared error types.
func fromStatus(op string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return &common.TransportError{Op: op, Err: err}
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return common.ErrorFromCode("unauthenticated", st.Message())
	case codes.PermissionDenied:
		return common.ErrorFromCode("permission_denied", st.Message())
	case codes.InvalidArgument:
		return common.ErrorFromCode("validation_failed", st.Message())
	case codes.NotFound:
		return common.ErrorFromCode("not_found", st.Message())
	default:
		return &common.TransportError{Op: op, Err: err}
	}
}
