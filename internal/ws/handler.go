package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/hub"
	"github.com/pr0mega/BCLLDraft/internal/lobby"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
	"github.com/pr0mega/BCLLDraft/internal/types"
)

const writeTimeout = 3 * time.Second

// Options tunes the websocket endpoint.
type Options struct {
	// OriginPatterns lists extra hosts allowed to open a socket, e.g. a display
	// window served from another origin.
	OriginPatterns []string
	Logger         *zap.Logger
}

// Handler serves /ws?code=X for the admin and /ws?code=X&view=display for
// read-only displays.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		accept := &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns}
		log := logger.With(zap.String("lobby", code))

		if r.URL.Query().Get("view") == "display" {
			mirror := h.Mirror(code)
			if mirror == nil {
				http.Error(w, "display mirroring disabled", http.StatusNotFound)
				return
			}
			conn, err := websocket.Accept(w, r, accept)
			if err != nil {
				return
			}
			serveDisplay(r.Context(), conn, mirror, log)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, accept)
		if err != nil {
			return
		}
		serveAdmin(r.Context(), conn, lb, log)
	}
}

func serveAdmin(ctx context.Context, conn *websocket.Conn, lb *lobby.Lobby, log *zap.Logger) {
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	out := make(chan lobby.Snapshot, 8)
	clientID := uuid.NewString()
	log = log.With(zap.String("client", clientID))

	lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}
	defer func() {
		select {
		case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
		case <-lb.Done():
		}
	}()

	// Writer goroutine
	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go func() {
		for snap := range out {
			msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, State: &snap.State}
			if snap.Err != nil {
				msg = types.ServerMessage{Type: types.MsgError, Version: snap.Version, Error: snap.Err.Error()}
			}
			if err := write(writeCtx, conn, msg); err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}
		}
		// Lobby dropped us or shut down.
		_ = conn.Close(websocket.StatusGoingAway, "lobby closed")
	}()

	// Reader loop
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debug("read ended", zap.Error(err))
			}
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
			continue
		}

		cmd, ok := toEngineCommand(cm)
		if !ok {
			_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: "unknown type"})
			continue
		}

		select {
		case lb.Inbox() <- lobby.FromClient{ClientID: clientID, Cmd: cmd}:
		case <-lb.Done():
			return
		}
	}
}

// serveDisplay follows the sync channel and never reads commands.
func serveDisplay(ctx context.Context, conn *websocket.Conn, mirror *snapshot.Mirror, log *zap.Logger) {
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// Displays send nothing; CloseRead handles pings and ends ctx on close.
	ctx = conn.CloseRead(ctx)

	updates := make(chan snapshot.Snapshot, 1)
	unsubscribe, err := mirror.Subscribe(ctx, func(s snapshot.Snapshot) {
		// Only the newest snapshot matters.
		select {
		case <-updates:
		default:
		}
		updates <- s
	})
	if err != nil {
		log.Warn("display subscribe failed", zap.Error(err))
		return
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-updates:
			state := snap.State()
			msg := types.ServerMessage{Type: types.MsgStateSnapshot, State: &state, Ts: snap.Timestamp}
			if err := write(ctx, conn, msg); err != nil {
				log.Debug("display write failed", zap.Error(err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch engine.CommandType(m.Type) {
	case engine.CmdStartDivision:
		return engine.Command{Type: engine.CmdStartDivision, Division: m.Division}, true
	case engine.CmdDraftPlayer:
		return engine.Command{Type: engine.CmdDraftPlayer, PlayerID: m.PlayerID}, true
	case engine.CmdUndoLastPick:
		return engine.Command{Type: engine.CmdUndoLastPick}, true
	case engine.CmdRestartDivision:
		return engine.Command{Type: engine.CmdRestartDivision, Confirm: m.Confirm}, true
	case engine.CmdResetApp:
		return engine.Command{Type: engine.CmdResetApp, Confirm: m.Confirm}, true
	case engine.CmdAssignDivision:
		return engine.Command{Type: engine.CmdAssignDivision, PlayerID: m.PlayerID, Division: m.Division}, true
	case engine.CmdSetTeams:
		return engine.Command{Type: engine.CmdSetTeams, Teams: m.Teams, Counts: m.Counts}, true
	case engine.CmdSetDraftOrder:
		return engine.Command{Type: engine.CmdSetDraftOrder, Division: m.Division, Order: m.Order}, true
	case engine.CmdResetDraftOrder:
		return engine.Command{Type: engine.CmdResetDraftOrder, Division: m.Division}, true
	case engine.CmdSetStep:
		return engine.Command{Type: engine.CmdSetStep, Step: engine.Step(m.Step)}, true
	default:
		// LoadPlayers arrives over HTTP as CSV.
		return engine.Command{}, false
	}
}
