// Package snapshot mirrors draft state between the admin lobby and read-only
// displays. The admin writes the whole state into one keyed slot and notifies;
// displays read the slot on connect and again on every notification.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

// DefaultKey is the slot name shared by admin and displays.
const DefaultKey = "bcll-draft-state"

var ErrNotFound = errors.New("snapshot not found")

type Snapshot struct {
	Step       engine.Step         `json:"step"`
	Players    roster.Index        `json:"players"`
	Divisions  []division.Division `json:"divisions"`
	DraftState *engine.Session     `json:"draftState"`
	DraftLog   []engine.LogEntry   `json:"draftLog"`
	Timestamp  int64               `json:"ts"` // unix millis
}

func FromState(s engine.State, at time.Time) Snapshot {
	return Snapshot{
		Step:       s.Step,
		Players:    s.Players,
		Divisions:  s.Divisions,
		DraftState: s.Draft,
		DraftLog:   s.Log,
		Timestamp:  at.UnixMilli(),
	}
}

func (s Snapshot) State() engine.State {
	return engine.State{
		Step:      s.Step,
		Players:   s.Players,
		Divisions: s.Divisions,
		Draft:     s.DraftState,
		Log:       s.DraftLog,
	}
}

// Store holds one opaque blob per key. Put replaces the whole blob.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// Notifier signals that the blob under a key was replaced. Notifications for a
// subscription are delivered in order, one call per write.
type Notifier interface {
	Notify(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string, fn func()) (unsubscribe func(), err error)
}
