package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"memory-game-server/config"
	"memory-game-server/wsutil"
)

// ErrSessionClosed is returned by Snapshot when the session loop has stopped.
var ErrSessionClosed = errors.New("session closed")

// ActionType enumerates the kinds of actions a session can process.
type ActionType int

const (
	ActionSelectCard      ActionType = iota
	ActionRestart
	ActionResolveMismatch // internal: fired after the mismatch delay expires
	ActionSnapshot        // read the current state through the loop
)

// Action is a request sent into the session's action channel.
type Action struct {
	Type    ActionType
	Index   int               // card position (for SelectCard)
	Pending PendingResolution // for ResolveMismatch
	Reply   chan State        // for Snapshot; must be buffered
}

// Session runs one game for one client. All state changes happen on the
// goroutine running Run; player input and timer callbacks are queued as
// Actions so they never interleave.
type Session struct {
	ID      string
	OwnerID string
	Config  *config.Config
	Send    chan []byte

	Actions chan Action
	Done    chan struct{}

	ctrl      *Controller
	quit      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session with a freshly dealt deck. send receives
// every state message; it may be nil.
func NewSession(id string, cfg *config.Config, send chan []byte) *Session {
	return newSessionWithRand(id, cfg, send, nil)
}

func newSessionWithRand(id string, cfg *config.Config, send chan []byte, intn func(n int) int) *Session {
	return &Session{
		ID:      id,
		Config:  cfg,
		Send:    send,
		Actions: make(chan Action, 16),
		Done:    make(chan struct{}),
		ctrl:    NewController(cfg.Symbols, intn),
		quit:    make(chan struct{}),
	}
}

// Run is the session loop. It processes actions sequentially until Close
// is called. It should be run as a goroutine.
func (s *Session) Run() {
	defer close(s.Done)

	s.sendStarted()
	s.broadcastState()

	for {
		select {
		case <-s.quit:
			return
		case action := <-s.Actions:
			s.handle(action)
		}
	}
}

// Close stops the session loop. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
}

// SelectCard queues a card selection at position.
func (s *Session) SelectCard(position int) {
	s.post(Action{Type: ActionSelectCard, Index: position})
}

// Restart queues a restart.
func (s *Session) Restart() {
	s.post(Action{Type: ActionRestart})
}

// Snapshot returns a copy of the current state, read on the session loop.
func (s *Session) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	select {
	case s.Actions <- Action{Type: ActionSnapshot, Reply: reply}:
	case <-s.Done:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-s.Done:
		return State{}, ErrSessionClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (s *Session) post(a Action) bool {
	select {
	case s.Actions <- a:
		return true
	case <-s.Done:
		return false
	}
}

func (s *Session) handle(action Action) {
	switch action.Type {
	case ActionSelectCard:
		s.handleSelectCard(action.Index)
	case ActionRestart:
		s.ctrl.Restart()
		slog.Info("restarted", "tag", "game", "session", s.ID, "generation", s.ctrl.Generation())
		s.broadcastState()
	case ActionResolveMismatch:
		if !s.ctrl.ResolveMismatch(action.Pending) {
			slog.Debug("stale mismatch resolution dropped", "tag", "game", "session", s.ID, "generation", action.Pending.Generation)
			return
		}
		s.broadcastState()
	case ActionSnapshot:
		if action.Reply != nil {
			action.Reply <- s.ctrl.State()
		}
	}
}

func (s *Session) handleSelectCard(position int) {
	res := s.ctrl.SelectCard(position)
	switch res.Outcome {
	case Ignored:
		slog.Debug("selection ignored", "tag", "game", "session", s.ID, "index", position)
		return
	case Mismatched:
		s.scheduleResolution(*res.Pending)
	case GameWon:
		st := s.ctrl.State()
		slog.Info("game won", "tag", "game", "session", s.ID, "moves", st.Moves, "matches", st.Matches)
	}
	s.broadcastState()
}

// scheduleResolution posts ActionResolveMismatch after the configured
// delay. The timer is never cancelled; a restart makes p stale instead.
func (s *Session) scheduleResolution(p PendingResolution) {
	delay := time.Duration(s.Config.MismatchDelayMS) * time.Millisecond
	time.AfterFunc(delay, func() {
		select {
		case s.Actions <- Action{Type: ActionResolveMismatch, Pending: p}:
		case <-s.Done:
		}
	})
}

func (s *Session) sendStarted() {
	msg := SessionStartedMsg{
		Type:            "session_started",
		SessionID:       s.ID,
		Symbols:         s.Config.Symbols,
		MismatchDelayMS: s.Config.MismatchDelayMS,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling session_started", "tag", "game", "err", err)
		return
	}
	wsutil.SafeSend(s.Send, data)
}

func (s *Session) broadcastState() {
	data, err := json.Marshal(BuildStateMsg(s.ID, s.ctrl.State()))
	if err != nil {
		slog.Error("marshaling game state", "tag", "game", "err", err)
		return
	}
	wsutil.SafeSend(s.Send, data)
}
