package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"nhooyr.io/websocket"

	"gameshub/internal/eventloop"
	"gameshub/internal/game"
	"gameshub/internal/game/coinflip"
	"gameshub/internal/game/plinko"
	"gameshub/internal/game/updown"
	"gameshub/internal/hub"
	"gameshub/internal/storage"
	"gameshub/internal/surface"
)

const testDelay = 20 * time.Millisecond

// --- Test environment ---

type testEnv struct {
	ts  *httptest.Server
	hub *hub.Hub
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := hub.New(loop, store, log)
	factories := []struct {
		id string
		f  game.Factory
	}{
		{"plinko", plinko.Factory(plinko.Config{Logger: log})},
		{"coinflip", coinflip.Factory(coinflip.Config{FlipDelay: testDelay, Rand: rand.New(rand.NewPCG(1, 0)), Logger: log})},
		{"updown", updown.Factory(updown.Config{RevealDelay: testDelay, Rand: rand.New(rand.NewPCG(2, 0)), Logger: log})},
		{"broken", func(*surface.Surface) (game.Game, error) { return nil, errors.New("missing assets") }},
	}
	for _, g := range factories {
		if err := h.Register(ctx, g.id, g.f); err != nil {
			t.Fatalf("register %s: %v", g.id, err)
		}
	}

	webFS := fstest.MapFS{
		"index.html": &fstest.MapFile{Data: []byte("<html><body>test</body></html>")},
	}
	srv := New(h, webFS, log)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: h}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- REST API helpers ---

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func loadViaAPI(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	resp := doRequest(t, http.MethodPost, ts.URL+"/api/games/"+id+"/load", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load %s: expected 200, got %d", id, resp.StatusCode)
	}
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/ws"
}

// wsConnect dials the hub WebSocket. The caller is responsible for closing
// the connection.
func wsConnect(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	return conn
}

// sendWS marshals and sends a typed WebSocket message.
func sendWS(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	p, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	wsSend(ctx, t, conn, WSMessage{Type: msgType, Payload: p})
}

// wsSend marshals and writes a pre-built WSMessage, calling t.Fatal on error.
func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, msg WSMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal ws message: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

// wsRead reads and unmarshals a WebSocket message, calling t.Fatal on error.
func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal ws message: %v", err)
	}
	return msg
}

// readUntil reads messages until one of type msgType satisfies ok.
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, msgType string, ok func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for {
		msg := wsRead(ctx, t, conn)
		if msg.Type == msgType && ok(msg.Payload) {
			return msg.Payload
		}
	}
}

// readView waits for a view in which the element id satisfies ok.
func readView(ctx context.Context, t *testing.T, conn *websocket.Conn, id string, ok func(surface.Element) bool) surface.View {
	t.Helper()
	var v surface.View
	readUntil(ctx, t, conn, "view", func(p json.RawMessage) bool {
		v = surface.View{}
		if err := json.Unmarshal(p, &v); err != nil {
			t.Fatalf("unmarshal view: %v", err)
		}
		el, found := findElement(v, id)
		return found && ok(el)
	})
	return v
}

// readError waits for the next "error" message and returns its text.
func readError(ctx context.Context, t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	p := readUntil(ctx, t, conn, "error", func(json.RawMessage) bool { return true })
	var ep errorPayload
	if err := json.Unmarshal(p, &ep); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	return ep.Message
}

func findElement(v surface.View, id string) (surface.Element, bool) {
	for _, el := range v.Elements {
		if el.ID == id {
			return el, true
		}
	}
	return surface.Element{}, false
}
