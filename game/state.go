package game

// CardView is the client-facing representation of a card.
// Symbol is only included when the card is face-up or matched.
type CardView struct {
	Index   int    `json:"index"`
	ID      int    `json:"id"`
	Symbol  string `json:"symbol,omitempty"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// GameStateMsg is the full game state pushed to the client after every change.
type GameStateMsg struct {
	Type      string     `json:"type"`
	SessionID string     `json:"sessionId"`
	Cards     []CardView `json:"cards"`
	Selection []int      `json:"selection"`
	Moves     int        `json:"moves"`
	Matches   int        `json:"matches"`
	Pairs     int        `json:"pairs"`
	Status    string     `json:"status"`
	// PendingResolution is true while a mismatched pair is face-up and input is suspended.
	PendingResolution bool `json:"pendingResolution"`
}

// SessionStartedMsg is sent once when a session is created for a client.
type SessionStartedMsg struct {
	Type            string   `json:"type"`
	SessionID       string   `json:"sessionId"`
	Symbols         []string `json:"symbols"`
	MismatchDelayMS int      `json:"mismatchDelayMs"`
}

// BuildCardViews constructs the client-facing card list.
// Face-down cards do not expose their symbol.
func BuildCardViews(cards []Card) []CardView {
	views := make([]CardView, len(cards))
	for i, card := range cards {
		cv := CardView{
			Index:   i,
			ID:      card.ID,
			Flipped: card.Flipped,
			Matched: card.Matched,
		}
		if card.Flipped || card.Matched {
			cv.Symbol = card.Symbol
		}
		views[i] = cv
	}
	return views
}

// BuildStateMsg converts a State into the message sent to the client.
func BuildStateMsg(sessionID string, st State) GameStateMsg {
	sel := st.Selection
	if sel == nil {
		sel = []int{}
	}
	return GameStateMsg{
		Type:              "game_state",
		SessionID:         sessionID,
		Cards:             BuildCardViews(st.Cards),
		Selection:         sel,
		Moves:             st.Moves,
		Matches:           st.Matches,
		Pairs:             PairCount(st.Cards),
		Status:            st.Status.String(),
		PendingResolution: st.Pending,
	}
}
