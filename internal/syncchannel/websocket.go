package syncchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"contentflow/internal/common"
)

// WSDialer connects to GET /api/v1/items/events.
type WSDialer struct {
	// URL is the events endpoint, e.g. ws://localhost:8080/api/v1/items/events.
	URL    string
	Token  string
	Dialer *websocket.Dialer
}

var _ Dialer = (*WSDialer)(nil)

func NewWSDialer(serverURL, token string) *WSDialer {
	return &WSDialer{
		URL:    EventsURL(serverURL),
		Token:  token,
		Dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// EventsURL turns an http(s) API base URL into the websocket events endpoint.
func EventsURL(serverURL string) string {
	u := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/v1/items/events"
}

func (d *WSDialer) Dial(ctx context.Context, scope string) (NotificationStream, error) {
	target, err := url.Parse(d.URL)
	if err != nil {
		return nil, common.NewValidationError("url", "invalid events url: %v", err)
	}
	q := target.Query()
	q.Set("scope", scope)
	target.RawQuery = q.Encode()

	header := http.Header{}
	if d.Token != "" {
		header.Set("Authorization", "Bearer "+d.Token)
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if typed := decodeHandshakeError(resp); typed != nil {
				return nil, typed
			}
		}
		return nil, &common.TransportError{Op: "websocket dial", Err: err}
	}
	return &wsStream{conn: conn}, nil
}

// decodeHandshakeError maps a rejected upgrade onto the error it reports.
func decodeHandshakeError(resp *http.Response) error {
	if resp.StatusCode < 400 || resp.StatusCode >= 500 {
		return nil
	}
	var body common.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		return common.ErrorFromCode(common.CodeForStatus(resp.StatusCode), fmt.Sprintf("websocket handshake: %s", resp.Status))
	}
	return common.ErrorFromCode(body.Error.Code, body.Error.Message)
}

type wsStream struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

func (s *wsStream) Recv() (common.ChangeNotification, error) {
	var n common.ChangeNotification
	if err := s.conn.ReadJSON(&n); err != nil {
		return n, &common.TransportError{Op: "websocket read", Err: err}
	}
	return n, nil
}

func (s *wsStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}
