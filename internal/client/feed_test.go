// ABOUTME: Tests for the HUD feed client
// ABOUTME: Joins a real feed server and checks hello, frame and state routing
package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmstac/RC-Cockpit-Simulator/internal/player"
	"github.com/mmstac/RC-Cockpit-Simulator/internal/server"
	"github.com/mmstac/RC-Cockpit-Simulator/pkg/telemetry"
)

func startFeed(t *testing.T) *server.Server {
	t.Helper()

	s := server.New(server.Config{
		Addr:      "127.0.0.1:0",
		SessionID: "bench",
		RateHz:    50,
		Layout:    telemetry.SerialLayout,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start feed: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8090"})
	if c.config.Path != "/feed" {
		t.Errorf("expected default path /feed, got %s", c.config.Path)
	}
	if c.IsConnected() {
		t.Error("new client should not be connected")
	}
}

func TestClientReceivesFeed(t *testing.T) {
	s := startFeed(t)

	c := NewClient(Config{ServerAddr: s.Addr()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	hello := c.Hello()
	if hello.SessionID != "bench" || hello.ClientID == "" {
		t.Errorf("unexpected hello %+v", hello)
	}

	waitFor(t, func() bool { return s.ClientCount() == 1 })

	s.SetState(player.StateStreaming)
	select {
	case st := <-c.States:
		if st.State != "streaming" {
			t.Errorf("expected streaming, got %s", st.State)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no state message")
	}

	var f telemetry.Frame
	f.Index = 7
	f.Values[telemetry.ThrottleCmd] = 1200
	s.Offer(player.Snapshot{Frame: f, Sent: 3, Total: 10, LogTime: 140 * time.Millisecond})

	select {
	case got := <-c.Frames:
		if got.Index != 7 || got.Sent != 3 || got.Total != 10 {
			t.Errorf("unexpected frame %+v", got)
		}
		if got.Channels["throttle"] != 1200 {
			t.Errorf("expected throttle 1200, got %v", got.Channels["throttle"])
		}
		if got.LogTimeMS != 140 {
			t.Errorf("expected log time 140ms, got %v", got.LogTimeMS)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame message")
	}
}

func TestClientDoneOnServerStop(t *testing.T) {
	s := startFeed(t)

	c := NewClient(Config{ServerAddr: s.Addr()})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Stop()

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("client did not notice the server closing")
	}
	if c.IsConnected() {
		t.Error("client should be disconnected")
	}
}

func TestClientRejectsWrongHello(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"feed/frame","payload":{"index":1}}`))
		conn.ReadMessage()
	}))
	defer ts.Close()

	c := NewClient(Config{ServerAddr: strings.TrimPrefix(ts.URL, "http://")})
	err := c.Connect(context.Background())
	if !errors.Is(err, ErrUnexpectedHello) {
		t.Errorf("expected ErrUnexpectedHello, got %v", err)
	}
}

func TestConnectRefused(t *testing.T) {
	c := NewClient(Config{ServerAddr: "127.0.0.1:1"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.Connect(ctx); err == nil {
		t.Error("expected dial error")
	}
}
