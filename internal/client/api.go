// Package client talks to the contentflow REST API and keeps a reconciled local view of one scope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"contentflow/internal/common"
	"contentflow/internal/ordering"
	"contentflow/internal/syncchannel"
)

const defaultHTTPTimeout = 15 * time.Second

// API is the REST client. It also serves as the Fetcher for both sync transports.
type API struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ syncchannel.Fetcher = (*API)(nil)

type Option func(*API)

func WithHTTPClient(client *http.Client) Option {
	return func(a *API) {
		if client != nil {
			a.httpClient = client
		}
	}
}

func NewAPI(baseURL, token string, opts ...Option) *API {
	a := &API{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type CreateRequest struct {
	Scope    string      `json:"scope"`
	MediaRef string      `json:"mediaRef"`
	Caption  string      `json:"caption,omitempty"`
	Kind     common.Kind `json:"kind"`
}

type PatchRequest struct {
	Caption            *string           `json:"caption,omitempty"`
	ScheduledDate      *time.Time        `json:"scheduledDate,omitempty"`
	ClearScheduledDate bool              `json:"clearScheduledDate,omitempty"`
	Transition         common.Transition `json:"transition,omitempty"`
	RejectionReason    string            `json:"rejectionReason,omitempty"`
	ExpectedUpdatedAt  *int64            `json:"expectedUpdatedAt,omitempty"`
}

type ReorderAck struct {
	Scope string              `json:"scope"`
	Items []ordering.Position `json:"items"`
}

type DeleteAck struct {
	ID           string `json:"id"`
	MediaDeleted bool   `json:"mediaDeleted"`
}

func (a *API) FetchChanges(ctx context.Context, scope string, since int64) (common.PollResponse, error) {
	q := url.Values{"scope": {scope}}
	if since > 0 {
		q.Set("lastCheckTimestamp", strconv.FormatInt(since, 10))
	}
	var resp common.PollResponse
	err := a.do(ctx, http.MethodGet, "/api/v1/items?"+q.Encode(), nil, &resp)
	return resp, err
}

func (a *API) Get(ctx context.Context, id string) (common.Item, error) {
	var it common.Item
	err := a.do(ctx, http.MethodGet, "/api/v1/items/"+url.PathEscape(id), nil, &it)
	return it, err
}

func (a *API) Create(ctx context.Context, req CreateRequest) (common.Item, error) {
	var it common.Item
	err := a.do(ctx, http.MethodPost, "/api/v1/items", req, &it)
	return it, err
}

func (a *API) Patch(ctx context.Context, id string, req PatchRequest) (common.Item, error) {
	var it common.Item
	err := a.do(ctx, http.MethodPatch, "/api/v1/items/"+url.PathEscape(id), req, &it)
	return it, err
}

func (a *API) Reorder(ctx context.Context, scope string, batch []ordering.Position) (ReorderAck, error) {
	var ack ReorderAck
	body := struct {
		Scope string              `json:"scope"`
		Items []ordering.Position `json:"items"`
	}{scope, batch}
	err := a.do(ctx, http.MethodPost, "/api/v1/items/reorder", body, &ack)
	return ack, err
}

func (a *API) Delete(ctx context.Context, id string, cascade bool) (DeleteAck, error) {
	var ack DeleteAck
	body := struct {
		CascadeToMediaStore bool `json:"cascadeToMediaStore"`
	}{cascade}
	err := a.do(ctx, http.MethodDelete, "/api/v1/items/"+url.PathEscape(id), body, &ack)
	return ack, err
}

// do sends one request. Error bodies are rebuilt into the common error types; anything that
// never produced a response is a TransportError.
func (a *API) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: new request: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	if id := common.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(common.RequestIDHeader, id)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &common.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &common.TransportError{Op: method + " " + path, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &common.TransportError{Op: method + " " + path, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var er common.ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil || er.Error.Code == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		if status >= http.StatusInternalServerError {
			return &common.TransportError{Op: "server", Err: fmt.Errorf("status %d: %s", status, msg)}
		}
		return common.ErrorFromCode(common.CodeForStatus(status), msg)
	}
	if er.Error.Code == "internal" {
		// ambiguous: the write may or may not have committed
		return &common.TransportError{Op: "server", Err: errors.New(er.Error.Message)}
	}
	return common.ErrorFromCode(er.Error.Code, er.Error.Message)
}
