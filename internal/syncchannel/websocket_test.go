package syncchannel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentflow/internal/common"
)

func TestEventsURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/api/v1/items/events", EventsURL("http://localhost:8080/"))
	assert.Equal(t, "wss://cf.example.com/api/v1/items/events", EventsURL("https://cf.example.com"))
}

func TestWSDialer_ReceivesNotifications(t *testing.T) {
	seen := make(chan [2]string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- [2]string{r.Header.Get("Authorization"), r.URL.Query().Get("scope")}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(common.ChangeNotification{Type: common.NotificationConnected})
		_ = conn.WriteJSON(common.ChangeNotification{Action: common.ActionUpdate, ItemID: "p1"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	d := NewWSDialer(srv.URL, "tok")
	stream, err := d.Dial(context.Background(), "feed")
	require.NoError(t, err)
	defer stream.Close()

	n, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, common.NotificationConnected, n.Type)

	n, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, common.ActionUpdate, n.Action)
	assert.Equal(t, "p1", n.ItemID)

	got := <-seen
	assert.Equal(t, "Bearer tok", got[0])
	assert.Equal(t, "feed", got[1])
}

func TestWSDialer_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		common.WriteErrorBody(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
	}))
	defer srv.Close()

	_, err := NewWSDialer(srv.URL, "bad").Dial(context.Background(), "feed")
	require.Error(t, err)
	assert.True(t, common.IsPermission(err))
	assert.True(t, strings.Contains(err.Error(), "expired"))
}

func TestWSDialer_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewWSDialer(url, "tok").Dial(context.Background(), "feed")
	assert.True(t, common.IsTransport(err))
}
