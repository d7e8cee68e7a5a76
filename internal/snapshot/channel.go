package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Channel binds a Store and a Notifier to one key. Failures are logged and
// swallowed: the admin keeps drafting even when displays fall behind.
type Channel struct {
	key      string
	store    Store
	notifier Notifier
	base     *zap.Logger
	logger   *zap.Logger
}

func NewChannel(key string, store Store, notifier Notifier, logger *zap.Logger) *Channel {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{key: key, store: store, notifier: notifier, base: logger, logger: logger.With(zap.String("key", key))}
}

func (c *Channel) Key() string { return c.key }

// ForLobby returns a channel on the same backends keyed for one league code.
func (c *Channel) ForLobby(code string) *Channel {
	return NewChannel(c.key+":"+code, c.store, c.notifier, c.base)
}

// Writer is the admin side: it can publish and clear, never read.
func (c *Channel) Writer() *Writer { return &Writer{c: c} }

// Mirror is the display side: it can read and follow, never write.
func (c *Channel) Mirror() *Mirror { return &Mirror{c: c} }

// Close releases backends that hold connections.
func (c *Channel) Close() error {
	var err error
	if closer, ok := c.store.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	if closer, ok := c.notifier.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	return err
}

type Writer struct{ c *Channel }

// Publish replaces the slot with snap and notifies mirrors.
func (w *Writer) Publish(ctx context.Context, snap Snapshot) {
	blob, err := json.Marshal(snap)
	if err != nil {
		w.c.logger.Warn("encode snapshot", zap.Error(err))
		return
	}
	if err := w.c.store.Put(ctx, w.c.key, blob); err != nil {
		w.c.logger.Warn("store snapshot", zap.Error(err))
		return
	}
	if err := w.c.notifier.Notify(ctx, w.c.key); err != nil {
		w.c.logger.Warn("notify snapshot", zap.Error(err))
	}
}

// Clear removes the slot. Mirrors are notified and find nothing to apply.
func (w *Writer) Clear(ctx context.Context) {
	if err := w.c.store.Delete(ctx, w.c.key); err != nil {
		w.c.logger.Warn("clear snapshot", zap.Error(err))
		return
	}
	if err := w.c.notifier.Notify(ctx, w.c.key); err != nil {
		w.c.logger.Warn("notify snapshot", zap.Error(err))
	}
}

type Mirror struct{ c *Channel }

// Load reads the current slot.
func (m *Mirror) Load(ctx context.Context) (Snapshot, error) {
	blob, err := m.c.store.Get(ctx, m.c.key)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Subscribe calls fn with the current snapshot, if any, and again after every
// write. An empty or unreadable slot is skipped. The subscription ends when ctx
// is done or unsubscribe is called.
func (m *Mirror) Subscribe(ctx context.Context, fn func(Snapshot)) (func(), error) {
	var mu sync.Mutex
	refresh := func() {
		mu.Lock()
		defer mu.Unlock()
		snap, err := m.Load(ctx)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
				m.c.logger.Warn("load snapshot", zap.Error(err))
			}
			return
		}
		fn(snap)
	}

	// Subscribe before the first read so a write in between is not missed.
	unsubscribe, err := m.c.notifier.Subscribe(ctx, m.c.key, refresh)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", m.c.key, err)
	}
	refresh()
	return unsubscribe, nil
}
