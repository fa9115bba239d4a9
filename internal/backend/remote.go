package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EngineRemote is the conventional name for the primary remote engine.
const EngineRemote = "remote"

// RemoteBlock is one layout block returned by a remote extraction engine.
type RemoteBlock struct {
	Type  string `json:"type"`  // heading, paragraph, table, code_block, list, image
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
	Page  int    `json:"page,omitempty"`
}

// RemoteResult is the native payload of a remote layout/OCR engine.
type RemoteResult struct {
	Name   string        `json:"-"`
	Blocks []RemoteBlock `json:"blocks"`
	Pages  int           `json:"pages"`
	Model  string        `json:"model,omitempty"`
}

func (r *RemoteResult) Engine() string { return r.Name }

// RemoteEngine calls an external layout-analysis service over HTTP. The wire
// shape is owned by the remote engine; this client only maps its failures
// onto the parser error taxonomy.
type RemoteEngine struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemoteEngine builds a client for a remote engine reachable at baseURL.
func NewRemoteEngine(name, baseURL, apiKey string, timeout time.Duration) *RemoteEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteEngine{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (e *RemoteEngine) Name() string { return e.name }

// Parse posts the raw document and decodes the engine's block list.
func (e *RemoteEngine) Parse(ctx context.Context, req Request) (Native, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/parse", bytes.NewReader(req.Data))
	if err != nil {
		return nil, parseErr(e.name, KindMalformedInput, err)
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	httpReq.Header.Set("X-Filename", req.Filename)
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
	for k, v := range req.Options {
		httpReq.Header.Set("X-Option-"+k, v)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, parseErr(e.name, KindTimeout, err)
		}
		return nil, parseErr(e.name, KindServerError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, parseErr(e.name, KindServerError, fmt.Errorf("read response: %w", err))
	}

	if kind, ok := kindForStatus(resp.StatusCode); ok {
		return nil, parseErr(e.name, kind, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	result := &RemoteResult{Name: e.name}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, parseErr(e.name, KindServerError, fmt.Errorf("decode response: %w", err))
	}
	if len(result.Blocks) == 0 {
		return nil, parseErr(e.name, KindMalformedInput, errors.New("engine returned no blocks"))
	}
	return result, nil
}

// kindForStatus maps the remote engine's HTTP failures onto the taxonomy.
func kindForStatus(status int) (ErrorKind, bool) {
	switch {
	case status == http.StatusOK:
		return "", false
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout, true
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status == http.StatusUnsupportedMediaType:
		return KindUnsupportedFormat, true
	case status >= 500:
		return KindServerError, true
	default:
		return KindMalformedInput, true
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (e *RemoteEngine) Close() {
	e.httpClient.CloseIdleConnections()
}
