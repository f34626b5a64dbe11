package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/MrSnakeDoc/dialcast/internal/logger"
	"github.com/MrSnakeDoc/dialcast/internal/utils"
)

const (
	// DefaultScheme is the Mopidy-YTMusic URI scheme.
	DefaultScheme = "ytmusic"
	// DefaultTimeout bounds each JSON-RPC call.
	DefaultTimeout = 2 * time.Second

	methodClear = "core.tracklist.clear"
	methodAdd   = "core.tracklist.add"
	methodPlay  = "core.playback.play"
)

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// MopidyClient drives Mopidy through its HTTP JSON-RPC frontend.
type MopidyClient struct {
	rpcURL string
	scheme string
	http   *http.Client
	logger logger.Logger
}

// NewMopidyClient builds a client for rpcURL. A non-positive timeout falls back to DefaultTimeout.
func NewMopidyClient(rpcURL string, timeout time.Duration, log logger.Logger) *MopidyClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := cleanhttp.DefaultPooledClient()
	c.Timeout = timeout

	return &MopidyClient{
		rpcURL: strings.TrimRight(rpcURL, "/"),
		scheme: DefaultScheme,
		http:   c,
		logger: log,
	}
}

// HandleLaunch queues and plays the video named by params. Launches without
// a video id are ignored.
func (m *MopidyClient) HandleLaunch(ctx context.Context, params map[string]string) {
	id := VideoID(params)
	if id == "" {
		m.logger.Debug("launch without video id, nothing to play")
		return
	}

	uri := BuildURI(m.scheme, id)
	m.logger.Info("playing launched video",
		logger.String("uri", uri),
		logger.String("title", params["title"]))
	m.PlayURI(ctx, uri)
}

// PlayURI replaces the tracklist with uri and starts playback. Each call is
// sent on its own; one failing does not stop the others.
func (m *MopidyClient) PlayURI(ctx context.Context, uri string) {
	calls := []rpcRequest{
		rpcPayload(methodClear, map[string]any{}),
		rpcPayload(methodAdd, map[string]any{"uris": []string{uri}}),
		rpcPayload(methodPlay, map[string]any{}),
	}

	for _, call := range calls {
		if err := m.post(ctx, call); err != nil {
			m.logger.Warn("mopidy rpc failed",
				logger.String("method", call.Method),
				logger.String("rpc_url", m.rpcURL),
				logger.Error(err))
		}
	}
}

func (m *MopidyClient) post(ctx context.Context, call rpcRequest) error {
	body, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("failed to marshal rpc payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.rpcURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer utils.Close(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("rpc endpoint returned %s", resp.Status)
	}
	return nil
}

func rpcPayload(method string, params map[string]any) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}
}
