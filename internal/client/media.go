package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentflow/internal/common"
	"contentflow/internal/reconcile"
)

const defaultMaxPreviewBytes = 32 << 20

// MediaClient loads previews from the media server's GET /media/{ref}.
type MediaClient struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
	now        func() time.Time
}

var _ reconcile.PreviewLoader = (*MediaClient)(nil)

func NewMediaClient(baseURL string, httpClient *http.Client) *MediaClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &MediaClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		maxBytes:   defaultMaxPreviewBytes,
		now:        time.Now,
	}
}

func (m *MediaClient) LoadPreview(ctx context.Context, mediaRef string) (*reconcile.Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/media/"+url.PathEscape(mediaRef), nil)
	if err != nil {
		return nil, fmt.Errorf("preview %s: new request: %w", mediaRef, err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &common.TransportError{Op: "preview " + mediaRef, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, decodeError(resp.StatusCode, raw)
	}
	if resp.ContentLength > m.maxBytes {
		return nil, common.NewValidationError("mediaRef", "preview of %d bytes exceeds %d", resp.ContentLength, m.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.maxBytes+1))
	if err != nil {
		return nil, &common.TransportError{Op: "preview " + mediaRef, Err: err}
	}
	if int64(len(data)) > m.maxBytes {
		return nil, common.NewValidationError("mediaRef", "preview exceeds %d bytes", m.maxBytes)
	}

	return &reconcile.Preview{
		MediaRef:    mediaRef,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
		FetchedAt:   m.now().UTC(),
	}, nil
}
