package grpcapi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"contentflow/internal/common"
	"contentflow/internal/config"
	"contentflow/internal/logger"
	"contentflow/internal/notif"
	"contentflow/internal/workflow"
)

// SyncServer streams the hub's notifications for one scope per Watch call.
type SyncServer struct {
	hub    *notif.Hub
	buffer int
}

var _ SyncServiceServer = (*SyncServer)(nil)

func NewSyncServer(hub *notif.Hub, cfg config.SyncConfig) *SyncServer {
	return &SyncServer{hub: hub, buffer: cfg.SessionBuffer}
}

// NewGRPCServer builds the gRPC server with auth on every call and the standard health service.
func NewGRPCServer(secret []byte, srv *SyncServer) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(common.AuthInterceptor(secret)),
		grpc.ChainStreamInterceptor(common.StreamAuthInterceptor(secret)),
	)
	RegisterSyncServiceServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s, hs
}

func (s *SyncServer) Watch(req *structpb.Struct, stream SyncService_WatchServer) error {
	ctx := stream.Context()
	scope := req.GetFields()["scope"].GetStringValue()
	if err := common.ValidateScope(scope); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	actor, ok := common.ActorFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "authorization required")
	}
	if err := workflow.CheckView(actor); err != nil {
		return status.Error(codes.PermissionDenied, err.Error())
	}

	obs := notif.NewStreamObserver(scope, s.buffer)
	s.hub.Subscribe(obs)
	defer func() {
		s.hub.Unsubscribe(obs)
		obs.Close()
	}()

	log := logger.WithContext(ctx).WithField("scope", scope)
	log.Info("grpc watch opened")
	defer log.Info("grpc watch closed")

	if err := stream.Send(ToStruct(common.ChangeNotification{Type: common.NotificationConnected})); err != nil {
		return err
	}

	for {
		select {
		case n, ok := <-obs.Notifications():
			if !ok {
				return nil
			}
			if err := stream.Send(ToStruct(n)); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		case <-s.hub.Done():
			return status.Error(codes.Unavailable, "server shutting down")
		}
	}
}

// ToStruct renders a notification in the same shape as its JSON form.
func ToStruct(n common.ChangeNotification) *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if n.Type != "" {
		fields["type"] = structpb.NewStringValue(n.Type)
	}
	if n.Action != "" {
		fields["action"] = structpb.NewStringValue(string(n.Action))
	}
	if n.ItemID != "" {
		fields["itemId"] = structpb.NewStringValue(n.ItemID)
	}
	return &structpb.Struct{Fields: fields}
}

func FromStruct(m *structpb.Struct) common.ChangeNotification {
	f := m.GetFields()
	return common.ChangeNotification{
		Type:   f["type"].GetStringValue(),
		Action: common.ChangeAction(f["action"].GetStringValue()),
		ItemID: f["itemId"].GetStringValue(),
	}
}
