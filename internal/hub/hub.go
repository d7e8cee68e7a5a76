package hub

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/lobby"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
)

type HubMsg interface{ isHubMsg() }

// CreateLobby returns the existing lobby when code is taken. State is only used
// if creation happens; a zero State starts from the configured divisions.
type CreateLobby struct {
	Code  string
	State engine.State
	Reply chan *lobby.Lobby
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	State engine.State // only used if creation happens
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ListLobbies struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// Config is shared by every lobby the hub creates.
type Config struct {
	// Channel is the base sync channel; each lobby writes under Channel.ForLobby(code).
	Channel   *snapshot.Channel
	Clock     clockwork.Clock
	Logger    *zap.Logger
	Divisions []division.Division
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.Divisions) == 0 {
		cfg.Divisions = division.Defaults()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Mirror returns the display side of a lobby's sync channel. Displays never
// touch the lobby itself, so the lobby need not live in this process.
func (h *Hub) Mirror(code string) *snapshot.Mirror {
	if h.cfg.Channel == nil {
		return nil
	}
	return h.cfg.Channel.ForLobby(code).Mirror()
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.ensure(msg.Code, msg.State)

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.Code, msg.State)

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Inbox() <- lobby.Shutdown{}
					delete(h.lobbies, msg.Code)
				}

			case ListLobbies:
				codes := make([]string, 0, len(h.lobbies))
				for code := range h.lobbies {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) ensure(code string, state engine.State) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil {
		return lb
	}
	if state.Step == "" {
		state = engine.NewEmptyState(h.cfg.Divisions)
	}

	cfg := lobby.Config{
		Clock:     h.cfg.Clock,
		Logger:    h.cfg.Logger.With(zap.String("lobby", code)),
		Divisions: h.cfg.Divisions,
	}
	if h.cfg.Channel != nil {
		cfg.Writer = h.cfg.Channel.ForLobby(code).Writer()
	}

	lb := lobby.NewLobby(h.ctx, state, cfg)
	h.lobbies[code] = lb
	h.cfg.Logger.Info("lobby created", zap.String("lobby", code))
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		default:
		}
	}
	clear(h.lobbies)
	h.cancel()
}
