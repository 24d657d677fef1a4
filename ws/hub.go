package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"memory-game-server/auth"
	"memory-game-server/config"
	"memory-game-server/game"
	"memory-game-server/sessions"
)

// SessionStarter is what the Hub needs from the session manager.
type SessionStarter interface {
	Start(ownerID string, send chan []byte) (*game.Session, error)
}

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	UserID(token string) (string, error)
}

// Hub maintains the set of active clients. Each client owns one session.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Sessions   SessionStarter
	Config     *config.Config

	// Auth is nil when play is anonymous.
	Auth TokenValidator

	upgrader websocket.Upgrader
	done     chan struct{}
}

// NewHub creates a new Hub. auth may be nil.
func NewHub(cfg *config.Config, sessions SessionStarter, auth TokenValidator) *Hub {
	h := &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Sessions:   sessions,
		Config:     cfg,
		Auth:       auth,
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	allowed := h.Config.AllowedOrigin
	if allowed == "" || allowed == "*" {
		return true
	}
	return r.Header.Get("Origin") == allowed
}

// Run starts the hub's main loop. Should be run as a goroutine.
// When ctx is cancelled (e.g. on server shutdown), Run closes every client's session and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, stopping", "tag", "hub")
			for client := range h.Clients {
				h.drop(client)
			}
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "hub", "session", client.Session.ID, "clients", len(h.Clients))
		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				h.drop(client)
				slog.Info("client disconnected", "tag", "hub", "session", client.Session.ID, "clients", len(h.Clients))
			}
		}
	}
}

// drop ends the client's session, then closes its send channel so the
// write pump exits. The session is stopped first so it never sends on a
// closed channel.
func (h *Hub) drop(c *Client) {
	delete(h.Clients, c)
	c.Session.Close()
	<-c.Session.Done
	close(c.Send)
}

// ServeWS authenticates the request when auth is configured, upgrades it to
// a WebSocket and starts a session for the new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.Auth != nil {
		id, err := h.Auth.UserID(auth.TokenFromRequest(r))
		if err != nil {
			slog.Warn("rejected connection", "tag", "hub", "remote", r.RemoteAddr, "err", err)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	send := make(chan []byte, 256)
	session, err := h.Sessions.Start(userID, send)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sessions.ErrTooManySessions) {
			status = http.StatusServiceUnavailable
		}
		slog.Warn("could not start session", "tag", "hub", "err", err)
		http.Error(w, "could not start session", status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade error", "tag", "hub", "err", err)
		session.Close()
		return
	}

	client := &Client{
		Hub:     h,
		Conn:    conn,
		Send:    send,
		UserID:  userID,
		Session: session,
	}

	select {
	case h.Register <- client:
	case <-h.done:
		session.Close()
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
