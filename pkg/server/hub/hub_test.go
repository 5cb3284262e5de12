package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textstream/textstream/pkg/event"
	"github.com/textstream/textstream/pkg/server/jobs"
)

type received struct {
	Event string          `json:"event"`
	TabID string          `json:"tabId"`
	JobID string          `json:"jobId"`
	Data  json.RawMessage `json:"data"`
}

func newTestHub(t *testing.T, cfg Config, bus event.EventBus) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(cfg, bus)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) received {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f received
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func connect(t *testing.T, srv *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	ws := dial(t, srv, nil)
	f := readFrame(t, ws)
	require.Equal(t, EventConnected, f.Event)

	var data ConnectedData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	require.NotEmpty(t, data.ConnectionID)
	require.NotEmpty(t, data.Version)
	return ws, data.ConnectionID
}

func TestHub_ConnectedFrame(t *testing.T) {
	h, srv := newTestHub(t, Config{}, nil)

	_, id := connect(t, srv)
	_, other := connect(t, srv)

	assert.NotEqual(t, id, other)
	assert.Eventually(t, func() bool { return h.Count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestHub_NotifyDeliversInOrder(t *testing.T) {
	h, srv := newTestHub(t, Config{SendBuffer: 1}, nil)
	ws, id := connect(t, srv)
	session := jobs.Session{ConnectionID: id, TabID: "tab-1"}

	go func() {
		_ = h.Notify(context.Background(), session, jobs.Event{Name: jobs.EventOutputLength, JobID: "j", Data: 3})
		for _, ch := range []string{"a", "b", "c"} {
			_ = h.Notify(context.Background(), session, jobs.Event{Name: jobs.EventReceiveCharacter, JobID: "j", Data: ch})
		}
		_ = h.Notify(context.Background(), session, jobs.Event{Name: jobs.EventComplete, JobID: "j"})
	}()

	f := readFrame(t, ws)
	assert.Equal(t, string(jobs.EventOutputLength), f.Event)
	assert.Equal(t, "tab-1", f.TabID)
	assert.Equal(t, "j", f.JobID)
	assert.JSONEq(t, "3", string(f.Data))

	var got []string
	for range 3 {
		f = readFrame(t, ws)
		require.Equal(t, string(jobs.EventReceiveCharacter), f.Event)
		var s string
		require.NoError(t, json.Unmarshal(f.Data, &s))
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	f = readFrame(t, ws)
	assert.Equal(t, string(jobs.EventComplete), f.Event)
	assert.Empty(t, f.Data)
}

func TestHub_NotifyUnknownConnection(t *testing.T) {
	h, _ := newTestHub(t, Config{}, nil)
	err := h.Notify(context.Background(), jobs.Session{ConnectionID: "ghost", TabID: "t"}, jobs.Event{Name: jobs.EventComplete})
	require.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestHub_EnqueueBlocksUntilContextDone(t *testing.T) {
	h := New(Config{}, nil)
	c := &conn{id: "c", send: make(chan []byte, 1), done: make(chan struct{})}
	c.send <- []byte(`{}`)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := h.enqueue(ctx, c, Frame{Event: "x"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(c.done)
	err = h.enqueue(context.Background(), c, Frame{Event: "x"})
	require.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestHub_DisconnectPublishesEvent(t *testing.T) {
	bus := event.New()
	var (
		mu     sync.Mutex
		closed []string
	)
	bus.Subscribe(jobs.EventConnectionClosed, func(_ context.Context, data any) {
		mu.Lock()
		defer mu.Unlock()
		closed = append(closed, data.(string))
	})

	h, srv := newTestHub(t, Config{}, bus)
	ws, id := connect(t, srv)

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = ws.Close()

	require.Eventually(t, func() bool { return h.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{id}, closed)

	err := h.Notify(context.Background(), jobs.Session{ConnectionID: id, TabID: "t"}, jobs.Event{Name: jobs.EventComplete})
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestHub_OriginCheck(t *testing.T) {
	_, srv := newTestHub(t, Config{AllowedOrigins: []string{"http://localhost:4200"}}, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ok := http.Header{"Origin": []string{"http://localhost:4200"}}
	ws, _, err := websocket.DefaultDialer.Dial(url, ok)
	require.NoError(t, err)
	_ = ws.Close()

	bad := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, bad)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_OriginWildcard(t *testing.T) {
	_, srv := newTestHub(t, Config{AllowedOrigins: []string{"*"}}, nil)
	ws := dial(t, srv, http.Header{"Origin": []string{"http://anything.example"}})
	assert.Equal(t, EventConnected, readFrame(t, ws).Event)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := New(Config{}, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ws, _ := connect(t, srv)
	h.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway) || !websocket.IsUnexpectedCloseError(err))
	assert.Equal(t, 0, h.Count())

	// New connections are turned away after Close.
	late := dial(t, srv, nil)
	require.NoError(t, late.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = late.ReadMessage()
	require.Error(t, err)
}
