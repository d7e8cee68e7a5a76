// Package types holds the websocket wire messages.
//
// Client -> Server (admin sockets only; display sockets ignore input)
//
//	AssignDivision:   playerId, division
//	SetTeams:         teams {division: [name]}, counts {division: n}
//	SetDraftOrder:    division, order [name]
//	ResetDraftOrder:  division
//	SetStep:          step "upload" | "assign" | "teams" | "order" | "draft"
//	StartDivision:    division
//	DraftPlayer:      playerId
//	UndoLastPick:     {}
//	RestartDivision:  confirm
//	ResetApp:         confirm
//
// Rosters are loaded with POST /lobbies/{code}/players, not over the socket.
//
// Server -> Client
//
//	StateSnapshot: version (admin), ts (display), state
//	  state.step, state.players, state.divisions, state.draftLog
//	  state.draftState: division, teams [{name, roster}], availablePlayers,
//	    currentRound, currentPick, draftOrder, pickHistory
//	Error: version, error. Sent only to the admin whose command was refused.
package types
