package feed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unftlabs/go-nftbridge/eventlog"
	"github.com/unftlabs/go-nftbridge/feed"
)

type wsMessage struct {
	Type string         `json:"type"`
	Data eventlog.Event `json:"data"`
}

func startFeed(t *testing.T) (*eventlog.Log, *feed.Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	log := eventlog.New(eventlog.NewMemorySink())
	hub := feed.NewHub(log, nil)
	srv := feed.NewServer(hub, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)
	t.Cleanup(func() { log.Close() })
	return log, hub, ts, cancel
}

func dial(t *testing.T, hub *feed.Hub, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Registration happens server-side after the handshake; wait for it so
	// an immediate append cannot slip past an empty client set.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestFeedDeliversEvents(t *testing.T) {
	log, hub, ts, _ := startFeed(t)
	conn := dial(t, hub, ts)

	sent, err := log.Append(context.Background(), eventlog.TokenMinted, 7, map[string]string{"owner": "0xabc"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg wsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "event" {
		t.Errorf("type = %q, want event", msg.Type)
	}
	if msg.Data.Seq != sent.Seq || msg.Data.Type != eventlog.TokenMinted || msg.Data.TokenID != 7 {
		t.Errorf("delivered event mismatch: %+v", msg.Data)
	}
}

func TestEventsEndpoint(t *testing.T) {
	log, _, ts, _ := startFeed(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := log.Append(ctx, eventlog.TokenMinted, uint64(i+1), nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	resp, err := http.Get(ts.URL + "/events")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var events []eventlog.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if err := eventlog.Verify(events); err != nil {
		t.Errorf("served journal must verify: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, _, ts, _ := startFeed(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestShutdownClosesClients(t *testing.T) {
	_, hub, ts, cancel := startFeed(t)
	conn := dial(t, hub, ts)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			// Close frame or connection teardown, either ends the loop.
			return
		}
	}
}
