package inspect

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daireb/reactor/pkg/reactor"
)

func TestSnapshotEndpoint(t *testing.T) {
	ins := New()
	count := reactor.NewState(41)
	Register(ins, "count", count)
	count.Set(42)

	srv := httptest.NewServer(ins.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes")
	if err != nil {
		t.Fatalf("GET /nodes: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var nodes []NodeSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	if nodes[0].Name != "count" {
		t.Errorf("name = %q, want %q", nodes[0].Name, "count")
	}
	// JSON numbers decode as float64.
	if v, ok := nodes[0].Value.(float64); !ok || v != 42 {
		t.Errorf("value = %v, want 42", nodes[0].Value)
	}
	if nodes[0].Updates != 2 {
		t.Errorf("updates = %d, want 2", nodes[0].Updates)
	}
}

func TestSnapshotOrder(t *testing.T) {
	ins := New()
	a := reactor.NewState(1)
	b := reactor.NewState(2)
	Register(ins, "a", a)
	Register(ins, "b", b)

	nodes := ins.Snapshot()
	if len(nodes) != 2 || nodes[0].Name != "a" || nodes[1].Name != "b" {
		t.Errorf("snapshot order = %v, want [a b]", nodes)
	}
}

func TestUnregister(t *testing.T) {
	ins := New()
	s := reactor.NewState(1)
	Register(ins, "s", s)
	Unregister(ins, "s")

	if got := len(ins.Snapshot()); got != 0 {
		t.Errorf("snapshot has %d nodes after unregister, want 0", got)
	}

	// The watch observer must be gone: further writes should not panic
	// or resurrect the entry.
	s.Set(2)
	if got := len(ins.Snapshot()); got != 0 {
		t.Errorf("snapshot has %d nodes after write, want 0", got)
	}
}

func TestReregisterReplaces(t *testing.T) {
	ins := New()
	a := reactor.NewState(1)
	b := reactor.NewState(10)
	Register(ins, "x", a)
	Register(ins, "x", b)

	a.Set(2)
	b.Set(20)

	nodes := ins.Snapshot()
	if len(nodes) != 1 {
		t.Fatalf("got %d nodes, want 1", len(nodes))
	}
	if v := nodes[0].Value.(int); v != 20 {
		t.Errorf("value = %v, want 20 (watch should follow b)", nodes[0].Value)
	}
}

func TestWebSocketStream(t *testing.T) {
	ins := New()
	count := reactor.NewState(0)
	Register(ins, "count", count)

	srv := httptest.NewServer(ins.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", wsURL, err)
	}
	defer conn.Close()

	// Wait for the hub to see the client before writing.
	deadline := time.Now().Add(2 * time.Second)
	for ins.hub.clientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	count.Set(7)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var upd Update
	if err := conn.ReadJSON(&upd); err != nil {
		t.Fatalf("reading update: %v", err)
	}
	if upd.Type != UpdateValue {
		t.Errorf("type = %q, want %q", upd.Type, UpdateValue)
	}
	if upd.Node != "count" {
		t.Errorf("node = %q, want %q", upd.Node, "count")
	}
	if v, ok := upd.Value.(float64); !ok || v != 7 {
		t.Errorf("value = %v, want 7", upd.Value)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ins := New()
	srv := httptest.NewServer(ins.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
