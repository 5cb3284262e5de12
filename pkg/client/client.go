// Package client talks to a textstream server: it opens the push channel,
// starts and cancels jobs and reads queue status.
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
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/textstream/textstream/pkg/server/api"
	v1 "github.com/textstream/textstream/pkg/server/api/v1"
	"github.com/textstream/textstream/pkg/server/hub"
	"github.com/textstream/textstream/pkg/server/jobs"
	"github.com/textstream/textstream/pkg/version"
)

const hubPath = "/processingHub"

var (
	// ErrIncompatibleServer is returned by Connect when the server's major
	// version differs from this build.
	ErrIncompatibleServer = errors.New("incompatible server version")
	// ErrUnexpectedFrame is returned by Connect when the first frame is not Connected.
	ErrUnexpectedFrame = errors.New("unexpected frame")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Client is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDialer replaces the websocket dialer used by Connect.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New creates a client for the server at baseURL, e.g. http://127.0.0.1:5000.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse server url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url: missing host in %q", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Stream is an open push channel.
type Stream struct {
	ws            *websocket.Conn
	ConnectionID  string
	ServerVersion string
}

// Connect opens the push channel and waits for the Connected frame.
func (c *Client) Connect(ctx context.Context) (*Stream, error) {
	u := *c.base
	u.Scheme = "ws"
	if c.base.Scheme == "https" {
		u.Scheme = "wss"
	}
	u.Path += hubPath

	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}

	var first struct {
		Event string            `json:"event"`
		Data  hub.ConnectedData `json:"data"`
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	if err := ws.ReadJSON(&first); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("read connected frame: %w", err)
	}
	_ = ws.SetReadDeadline(time.Time{})

	if first.Event != hub.EventConnected || first.Data.ConnectionID == "" {
		_ = ws.Close()
		return nil, fmt.Errorf("%w: got %q, want %q", ErrUnexpectedFrame, first.Event, hub.EventConnected)
	}

	ok, err := version.Compatible(first.Data.Version)
	if err != nil || !ok {
		_ = ws.Close()
		return nil, fmt.Errorf("%w: server %s, client %s", ErrIncompatibleServer, first.Data.Version, version.Version)
	}

	return &Stream{ws: ws, ConnectionID: first.Data.ConnectionID, ServerVersion: first.Data.Version}, nil
}

// Next blocks until the next frame arrives.
func (s *Stream) Next() (hub.Frame, error) {
	var f hub.Frame
	if err := s.ws.ReadJSON(&f); err != nil {
		return hub.Frame{}, err
	}
	return f, nil
}

// Session returns the session for tabID on this stream.
func (s *Stream) Session(tabID string) jobs.Session {
	return jobs.Session{ConnectionID: s.ConnectionID, TabID: tabID}
}

// Close sends a normal closure and closes the connection.
func (s *Stream) Close() error {
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.ws.Close()
}

// Start submits input for session and returns the job id.
func (c *Client) Start(ctx context.Context, input string, session jobs.Session) (string, error) {
	var resp api.StartProcessingResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/processing/start", v1.StartProcessingRequest{
		Input:        input,
		ConnectionID: session.ConnectionID,
		TabID:        session.TabID,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Cancel cancels the job running for session. It returns false when no job was found.
func (c *Client) Cancel(ctx context.Context, session jobs.Session) (bool, error) {
	var resp api.CancelProcessingResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/processing/cancel", v1.CancelProcessingRequest{
		ConnectionID: session.ConnectionID,
		TabID:        session.TabID,
	}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Status returns the server's queue statistics.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var resp api.StatusResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/processing/status", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
			apiErr.Code = er.Code
			apiErr.Message = er.Message
			if apiErr.Message == "" {
				apiErr.Message = er.Error
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
