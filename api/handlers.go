package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"memory-game-server/auth"
	"memory-game-server/config"
	"memory-game-server/game"
	"memory-game-server/sessions"
)

// SessionLookup is what the API needs from the session manager.
type SessionLookup interface {
	GetOwned(id, userID string) (*game.Session, error)
	Count() int
}

// TokenValidator resolves a bearer token to a user ID.
type TokenValidator interface {
	UserID(token string) (string, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	Config   *config.Config
	Sessions SessionLookup
	// Auth is nil when play is anonymous; then any session can be read by ID.
	Auth TokenValidator
}

// NewHandler creates a new API handler with the given dependencies.
func NewHandler(cfg *config.Config, sessions SessionLookup, auth TokenValidator) *Handler {
	return &Handler{
		Config:   cfg,
		Sessions: sessions,
		Auth:     auth,
	}
}

// Routes mounts the API endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.CORS)
	r.Get("/healthz", h.Health)
	r.Get("/api/sessions/{id}", h.Session)
}

// CORS sets CORS headers and answers preflight requests.
func (h *Handler) CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := h.Config.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the JSON body of /healthz.
type HealthResponse struct {
	OK       bool `json:"ok"`
	Sessions int  `json:"sessions"`
}

// Health reports liveness and the number of live sessions.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, Sessions: h.Sessions.Count()})
}

// Session returns a read-only snapshot of one live session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	var userID string
	if h.Auth != nil {
		id, err := h.Auth.UserID(auth.TokenFromRequest(r))
		if err != nil {
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		}
		userID = id
	}

	s, err := h.Sessions.GetOwned(chi.URLParam(r, "id"), userID)
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case errors.Is(err, sessions.ErrNotOwner):
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	case err != nil:
		slog.Error("session lookup", "tag", "api", "err", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	st, err := s.Snapshot(r.Context())
	if err != nil {
		if errors.Is(err, game.ErrSessionClosed) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		slog.Warn("session snapshot", "tag", "api", "session", s.ID, "err", err)
		http.Error(w, "failed to load session", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, game.BuildStateMsg(s.ID, st))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "tag", "api", "err", err)
	}
}
