package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/types"
)

func TestToEngineCommand(t *testing.T) {
	tests := []struct {
		name string
		in   types.ClientMessage
		want engine.Command
		ok   bool
	}{
		{"start", types.ClientMessage{Type: "StartDivision", Division: "Minors"},
			engine.Command{Type: engine.CmdStartDivision, Division: "Minors"}, true},
		{"draft", types.ClientMessage{Type: "DraftPlayer", PlayerID: "player-3", Division: "ignored"},
			engine.Command{Type: engine.CmdDraftPlayer, PlayerID: "player-3"}, true},
		{"undo", types.ClientMessage{Type: "UndoLastPick"},
			engine.Command{Type: engine.CmdUndoLastPick}, true},
		{"restart keeps confirm", types.ClientMessage{Type: "RestartDivision", Confirm: true},
			engine.Command{Type: engine.CmdRestartDivision, Confirm: true}, true},
		{"reset without confirm", types.ClientMessage{Type: "ResetApp"},
			engine.Command{Type: engine.CmdResetApp}, true},
		{"order", types.ClientMessage{Type: "SetDraftOrder", Division: "Majors", Order: []string{"Rays", "Reds"}},
			engine.Command{Type: engine.CmdSetDraftOrder, Division: "Majors", Order: []string{"Rays", "Reds"}}, true},
		{"step", types.ClientMessage{Type: "SetStep", Step: "teams"},
			engine.Command{Type: engine.CmdSetStep, Step: engine.StepTeams}, true},
		{"players only over http", types.ClientMessage{Type: "LoadPlayers"}, engine.Command{}, false},
		{"unknown", types.ClientMessage{Type: "LockPick"}, engine.Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toEngineCommand(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
