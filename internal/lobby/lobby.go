package lobby

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/snapshot"
)

type Msg interface{ isLobbyMsg() }

// FromClient carries one admin command. Reply, when set, receives the result of
// Apply so synchronous callers (HTTP upload) can report it.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
	Reply    chan error
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Snapshot is what a joined client receives. Err is set only on the copy sent
// to the client whose command was rejected; State is then unchanged.
type Snapshot struct {
	Version int
	State   engine.State
	Err     error
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Config wires a lobby to its surroundings. Every field is optional.
type Config struct {
	Writer *snapshot.Writer
	Clock  clockwork.Clock
	Logger *zap.Logger
	// Divisions replaces the stock divisions when the app is reset.
	Divisions []division.Division
}

type Lobby struct {
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, initial engine.State, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		version: 0,
		clients: make(map[string]chan Snapshot),
		cfg:     cfg,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- Snapshot{Version: l.version, State: l.state}

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				err := l.apply(msg)
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(msg FromClient) error {
	cmd := msg.Cmd
	cmd.At = l.cfg.Clock.Now()
	if cmd.Type == engine.CmdResetApp && len(cmd.Divisions) == 0 {
		cmd.Divisions = division.CloneAll(l.cfg.Divisions)
	}

	events, newState, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Info("command ignored",
			zap.String("client", msg.ClientID),
			zap.String("command", string(cmd.Type)),
			zap.Error(err))
		l.reject(msg.ClientID, err)
		return err
	}

	l.state = newState
	l.version++
	l.log.Info("command applied",
		zap.String("client", msg.ClientID),
		zap.String("command", string(cmd.Type)),
		zap.Int("version", l.version),
		zap.Int("picks", engine.CountEvents(events, engine.EvtPlayerDrafted)),
		zap.Int("siblings", engine.CountEvents(events, engine.EvtSiblingAssigned)))
	for _, ev := range events {
		l.log.Debug("draft event",
			zap.String("event", string(ev.Type)),
			zap.String("division", ev.Division),
			zap.String("team", ev.Team),
			zap.String("player", ev.PlayerID),
			zap.Int("round", ev.Round),
			zap.Int("pick", ev.Pick))
	}

	l.broadcast(Snapshot{Version: l.version, State: l.state})
	l.publish(engine.ContainsEvent(events, engine.EvtAppReset), cmd)
	return nil
}

// publish mirrors the new state to displays. A reset clears the slot first so a
// display never keeps state from before the reset.
func (l *Lobby) publish(reset bool, cmd engine.Command) {
	if l.cfg.Writer == nil {
		return
	}
	if reset {
		l.cfg.Writer.Clear(l.ctx)
	}
	l.cfg.Writer.Publish(l.ctx, snapshot.FromState(l.state, cmd.At))
}

func (l *Lobby) reject(clientID string, err error) {
	ch, ok := l.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- Snapshot{Version: l.version, State: l.state, Err: err}:
	default:
		close(ch)
		delete(l.clients, clientID)
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("client", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }
