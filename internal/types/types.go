package types

import "github.com/pr0mega/BCLLDraft/internal/engine"

// ClientMessage is an admin command as sent over the websocket. Only the fields
// the command type needs are read.
type ClientMessage struct {
	Type     string              `json:"type"`
	Division string              `json:"division,omitempty"`
	PlayerID string              `json:"playerId,omitempty"`
	Teams    map[string][]string `json:"teams,omitempty"`
	Counts   map[string]int      `json:"counts,omitempty"`
	Order    []string            `json:"order,omitempty"`
	Step     string              `json:"step,omitempty"`
	Confirm  bool                `json:"confirm,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // "StateSnapshot" | "Error"
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Error   string        `json:"error,omitempty"`
	Ts      int64         `json:"ts,omitempty"` // unix millis of the write, display only
}

const (
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)
