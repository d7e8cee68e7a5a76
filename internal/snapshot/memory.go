package snapshot

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps slots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.slots[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(blob), nil
}

func (s *MemoryStore) Put(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = slices.Clone(blob)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

// subscriberBuffer bounds pending notifications per subscriber. When full the
// notification is dropped; the subscriber still has one queued and will read
// the latest slot.
const subscriberBuffer = 16

type localSub struct {
	ch   chan struct{}
	done chan struct{}
	stop func()
}

// closeOnce returns a func that closes ch on its first call. Later and
// concurrent calls are no-ops.
func closeOnce(ch chan struct{}) func() {
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// LocalNotifier fans notifications out to subscribers in the same process.
// Each subscriber has its own goroutine so a slow display never blocks Notify.
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[string]map[*localSub]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[string]map[*localSub]struct{})}
}

func (n *LocalNotifier) Notify(_ context.Context, key string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for sub := range n.subs[key] {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(ctx context.Context, key string, fn func()) (func(), error) {
	done := make(chan struct{})
	sub := &localSub{ch: make(chan struct{}, subscriberBuffer), done: done, stop: closeOnce(done)}

	n.mu.Lock()
	if n.subs[key] == nil {
		n.subs[key] = make(map[*localSub]struct{})
	}
	n.subs[key][sub] = struct{}{}
	n.mu.Unlock()

	go func() {
		defer n.remove(key, sub)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.ch:
				fn()
			}
		}
	}()
	return sub.stop, nil
}

func (n *LocalNotifier) remove(key string, sub *localSub) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[key], sub)
	if len(n.subs[key]) == 0 {
		delete(n.subs, key)
	}
}

// Subscribers reports how many subscriptions are open for key.
func (n *LocalNotifier) Subscribers(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[key])
}
