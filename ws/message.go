package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// SelectCardMsg is sent when the player clicks a card.
type SelectCardMsg struct {
	Type  string `json:"type"`
	Index *int   `json:"index"`
}

// RestartMsg is sent when the player clicks restart.
type RestartMsg struct {
	Type string `json:"type"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client message cannot be understood.
// Moves the game rules reject are ignored silently and never produce one.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
