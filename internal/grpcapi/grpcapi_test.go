package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"contentflow/internal/common"
	"contentflow/internal/config"
	"contentflow/internal/notif"
)

const bufSize = 1024 * 1024

var testSecret = []byte("grpc-test-secret")

func setupGRPCTest(t *testing.T) (*grpc.ClientConn, *notif.Hub) {
	t.Helper()
	lis := bufconn.Listen(bufSize)

	hub := notif.NewHub(1, 16)
	s, _ := NewGRPCServer(testSecret, NewSyncServer(hub, config.SyncConfig{SessionBuffer: 8}))
	go func() {
		_ = s.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		s.Stop()
		hub.Shutdown()
	})
	return conn, hub
}

func token(t *testing.T, role common.Role) string {
	t.Helper()
	tok, err := common.GenerateToken(testSecret, "contentflow", time.Hour, common.Actor{UserID: "u1", Role: role})
	require.NoError(t, err)
	return tok
}

func recvWithin(t *testing.T, stream interface {
	Recv() (common.ChangeNotification, error)
}) (common.ChangeNotification, error) {
	t.Helper()
	type result struct {
		n   common.ChangeNotification
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := stream.Recv()
		ch <- result{n, err}
	}()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return common.ChangeNotification{}, nil
}

func TestWatchDeliversScopeNotifications(t *testing.T) {
	conn, hub := setupGRPCTest(t)
	d := NewDialerWithConn(conn, token(t, common.RoleContentCreator))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := d.Dial(ctx, "feed")
	require.NoError(t, err)
	defer stream.Close()

	hub.Notify(common.ChangeEvent{Action: common.ActionUpdate, ItemID: "other", Scope: "story"})
	hub.Notify(common.ChangeEvent{Action: common.ActionCreate, ItemID: "i1", Scope: "feed"})

	n, err := recvWithin(t, stream)
	require.NoError(t, err)
	assert.Equal(t, common.ChangeNotification{Action: common.ActionCreate, ItemID: "i1"}, n)
}

func TestWatchRejections(t *testing.T) {
	conn, _ := setupGRPCTest(t)

	tests := []struct {
		name    string
		token   string
		scope   string
		isError func(error) bool
	}{
		{"no token", "", "feed", common.IsPermission},
		{"bad token", "not-a-jwt", "feed", common.IsPermission},
		{"bad scope", token(t, common.RoleAdmin), "Not A Scope!", common.IsValidation},
		{"user role", token(t, common.RoleUser), "feed", common.IsPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := NewDialerWithConn(conn, tt.token).Dial(ctx, tt.scope)
			require.Error(t, err)
			assert.True(t, tt.isError(err), "unexpected error type: %v", err)
		})
	}
}

func TestWatchEndsOnHubShutdown(t *testing.T) {
	conn, hub := setupGRPCTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := NewDialerWithConn(conn, token(t, common.RoleManager)).Dial(ctx, "feed")
	require.NoError(t, err)
	defer stream.Close()

	hub.Shutdown()

	_, err = recvWithin(t, stream)
	require.Error(t, err)
	assert.True(t, common.IsTransport(err))
}

func TestHealthIsPublic(t *testing.T) {
	conn, _ := setupGRPCTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestStructRoundTrip(t *testing.T) {
	for _, n := range []common.ChangeNotification{
		{Type: common.NotificationConnected},
		{Action: common.ActionDelete, ItemID: "abc"},
	} {
		assert.Equal(t, n, FromStruct(ToStruct(n)))
	}
	assert.Empty(t, ToStruct(common.ChangeNotification{}).GetFields())
}
