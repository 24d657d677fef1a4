package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"memory-game-server/config"
	"memory-game-server/sessions"
)

// setupTestServer creates a test HTTP server with the full server stack.
func setupTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *sessions.Manager) {
	t.Helper()

	mgr := sessions.NewManager(cfg)
	handler, hub := newServer(cfg, mgr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		cancel()
		mgr.CloseAll()
	})
	return server, mgr
}

func testConfig() *config.Config {
	return &config.Config{
		Symbols:         []string{"a", "b"},
		MismatchDelayMS: 100,
		MaxSessions:     10,
		AllowedOrigin:   "*",
	}
}

// connectWS creates a WebSocket connection to the test server.
func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

// readState reads the next message and checks that it is a game_state.
func readState(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	msg := readMsg(t, conn)
	if msg["type"] != "game_state" {
		t.Fatalf("expected game_state, got %v", msg["type"])
	}
	return msg
}

// sendMsg sends a JSON message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func selectCard(t *testing.T, conn *websocket.Conn, index int) map[string]interface{} {
	t.Helper()
	sendMsg(t, conn, map[string]interface{}{"type": "select_card", "index": index})
	return readState(t, conn)
}

func cardAt(state map[string]interface{}, i int) map[string]interface{} {
	return state["cards"].([]interface{})[i].(map[string]interface{})
}

// startGame connects and consumes the session_started and initial game_state messages.
func startGame(t *testing.T, server *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	conn := connectWS(t, server)
	started := readMsg(t, conn)
	if started["type"] != "session_started" {
		t.Fatalf("expected session_started, got %v", started["type"])
	}
	sessionID, _ := started["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("session_started without sessionId")
	}
	st := readState(t, conn)
	if len(st["cards"].([]interface{})) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(st["cards"].([]interface{})))
	}
	return conn, sessionID
}

func symbolAt(state map[string]interface{}, i int) string {
	sym, _ := cardAt(state, i)["symbol"].(string)
	return sym
}

func TestIntegration_FullGame(t *testing.T) {
	server, _ := setupTestServer(t, testConfig())
	conn, _ := startGame(t, server)

	first := selectCard(t, conn, 0)
	if first["moves"] != float64(0) {
		t.Errorf("first flip must not count as a move, got %v", first["moves"])
	}
	st := selectCard(t, conn, 1)
	if st["moves"] != float64(1) {
		t.Errorf("expected moves=1, got %v", st["moves"])
	}

	var last map[string]interface{}
	if cardAt(st, 0)["matched"] == true {
		// 0/1 and 2/3 are the pairs.
		selectCard(t, conn, 2)
		last = selectCard(t, conn, 3)
	} else {
		sym0, sym1 := symbolAt(st, 0), symbolAt(st, 1)
		if st["pendingResolution"] != true {
			t.Fatalf("expected a pending resolution after a mismatch")
		}
		st = readState(t, conn)
		if cardAt(st, 0)["flipped"] == true || cardAt(st, 1)["flipped"] == true {
			t.Fatal("mismatched cards should be face-down after the delay")
		}

		st = selectCard(t, conn, 2)
		partner, other := 1, 0
		if symbolAt(st, 2) == sym0 {
			partner, other = 0, 1
		} else if symbolAt(st, 2) != sym1 {
			t.Fatalf("card 2 symbol %q matches neither %q nor %q", symbolAt(st, 2), sym0, sym1)
		}
		st = selectCard(t, conn, partner)
		if cardAt(st, 2)["matched"] != true {
			t.Fatalf("expected cards 2 and %d to match", partner)
		}
		selectCard(t, conn, other)
		last = selectCard(t, conn, 3)
	}

	if last["status"] != "won" {
		t.Errorf("expected won, got %v", last["status"])
	}
	if last["matches"] != float64(2) {
		t.Errorf("expected 2 matches, got %v", last["matches"])
	}

	// Input after the win is ignored; restart is the only way back.
	sendMsg(t, conn, map[string]interface{}{"type": "select_card", "index": 0})
	sendMsg(t, conn, map[string]string{"type": "restart"})
	st = readState(t, conn)
	if st["status"] != "playing" || st["matches"] != float64(0) {
		t.Errorf("expected a fresh game after restart, got %v", st)
	}
}

func TestIntegration_Restart(t *testing.T) {
	server, _ := setupTestServer(t, testConfig())
	conn, _ := startGame(t, server)

	selectCard(t, conn, 0)
	sendMsg(t, conn, map[string]string{"type": "restart"})
	st := readState(t, conn)

	if st["moves"] != float64(0) || st["matches"] != float64(0) || st["status"] != "playing" {
		t.Errorf("expected a fresh game, got moves=%v matches=%v status=%v", st["moves"], st["matches"], st["status"])
	}
	for i := 0; i < 4; i++ {
		c := cardAt(st, i)
		if c["flipped"] == true || c["matched"] == true {
			t.Errorf("card %d should be fresh after restart: %v", i, c)
		}
	}
}

func TestIntegration_InvalidMessages(t *testing.T) {
	server, _ := setupTestServer(t, testConfig())
	conn, _ := startGame(t, server)

	conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	if msg := readMsg(t, conn); msg["type"] != "error" {
		t.Errorf("expected error for invalid JSON, got %v", msg["type"])
	}

	sendMsg(t, conn, map[string]string{"type": "select_card"})
	if msg := readMsg(t, conn); msg["type"] != "error" {
		t.Errorf("expected error for missing index, got %v", msg["type"])
	}

	sendMsg(t, conn, map[string]string{"type": "flip_card"})
	if msg := readMsg(t, conn); msg["type"] != "error" {
		t.Errorf("expected error for unknown type, got %v", msg["type"])
	}
}

func TestIntegration_IgnoredSelectionIsSilent(t *testing.T) {
	server, _ := setupTestServer(t, testConfig())
	conn, _ := startGame(t, server)

	selectCard(t, conn, 0)
	// Same card again and an out-of-range card are rule violations: no reply.
	sendMsg(t, conn, map[string]interface{}{"type": "select_card", "index": 0})
	sendMsg(t, conn, map[string]interface{}{"type": "select_card", "index": 99})
	sendMsg(t, conn, map[string]string{"type": "restart"})

	// The next message is the restart state: card 0 is face-down again.
	st := readState(t, conn)
	if cardAt(st, 0)["flipped"] == true || len(st["selection"].([]interface{})) != 0 {
		t.Errorf("expected the restart state next, got %v", st)
	}
}

func TestIntegration_SessionSnapshotAPI(t *testing.T) {
	server, mgr := setupTestServer(t, testConfig())
	conn, sessionID := startGame(t, server)
	selectCard(t, conn, 1)

	resp, err := http.Get(server.URL + "/api/sessions/" + sessionID)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var st map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if cardAt(st, 1)["flipped"] != true {
		t.Errorf("snapshot should show card 1 flipped: %v", cardAt(st, 1))
	}
	if mgr.Count() != 1 {
		t.Errorf("expected 1 live session, got %d", mgr.Count())
	}

	// Closing the socket ends the session.
	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for mgr.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if mgr.Count() != 0 {
		t.Errorf("session should be removed after disconnect, got %d", mgr.Count())
	}
}

func TestIntegration_HealthAndClient(t *testing.T) {
	server, _ := setupTestServer(t, testConfig())

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Memory Game") {
		t.Errorf("expected the embedded client, got %d", resp.StatusCode)
	}
}

func TestIntegration_SessionLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 1
	server, _ := setupTestServer(t, cfg)
	startGame(t, server)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the second connection to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", resp)
	}
}
