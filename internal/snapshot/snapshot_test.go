package snapshot

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

var snapTime = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func sampleState(t *testing.T) engine.State {
	t.Helper()
	divs, err := division.SetTeams(division.Defaults(),
		map[string][]string{"Minors": {"Cubs", "Sox"}},
		map[string]int{"Minors": 2},
	)
	require.NoError(t, err)

	s := engine.NewEmptyState(divs)
	s.Step = engine.StepDraft
	s.Players = roster.Index{
		{ID: roster.PlayerID(0), Index: 0, EvalID: "M1", AccountLastName: "Garcia", Street: "1 Elm", Age: 9, Division: "Minors"},
		{ID: roster.PlayerID(1), Index: 1, EvalID: "M2", AccountLastName: "Brown", Street: "2 Oak", Age: 10, Division: "Minors"},
		{ID: roster.PlayerID(2), Index: 2, EvalID: "M3", AccountLastName: "Ng", Street: "3 Fir", Age: 8, Division: "Minors"},
	}
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdStartDivision, Division: "Minors"})
	require.NoError(t, err)
	_, s, err = engine.Apply(s, engine.Command{Type: engine.CmdDraftPlayer, PlayerID: "player-1", At: snapTime})
	require.NoError(t, err)
	return s
}

// recv waits for one snapshot so tests never hang.
func recv(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func recvNone(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case snap := <-ch:
		t.Fatalf("expected no snapshot within %v, got ts=%d", within, snap.Timestamp)
	case <-time.After(within):
	}
}

func TestSnapshot_RoundTripsState(t *testing.T) {
	s := sampleState(t)
	snap := FromState(s, snapTime)

	assert.Equal(t, snapTime.UnixMilli(), snap.Timestamp)
	assert.Equal(t, s, snap.State())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	blob := []byte(`{"step":"draft"}`)
	require.NoError(t, store.Put(ctx, "k", blob))
	blob[0] = 'x'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"step":"draft"}`, string(got), "store keeps its own copy")

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_SQLite(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(snapTime)
	store, err := OpenGormStore(filepath.Join(t.TempDir(), "draft.db"), false, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Get(ctx, "bcll")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "bcll", []byte("one")))
	clock.Advance(time.Minute)
	require.NoError(t, store.Put(ctx, "bcll", []byte("two")))
	got, err := store.Get(ctx, "bcll")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	var rows int64
	require.NoError(t, store.db.Model(&snapshotRow{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows, "put replaces the slot")

	var row snapshotRow
	require.NoError(t, store.db.Take(&row, "snapshot_key = ?", "bcll").Error)
	assert.True(t, row.UpdatedAt.Equal(snapTime.Add(time.Minute)), "updated_at comes from the store clock, got %v", row.UpdatedAt)

	require.NoError(t, store.Delete(ctx, "bcll"))
	_, err = store.Get(ctx, "bcll")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db, clockwork.NewFakeClockAt(snapTime)), mock
}

func TestGormStore_Postgres_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "draft_snapshots" WHERE snapshot_key = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_key", "blob", "updated_at"}).
			AddRow("bcll", []byte("state"), snapTime))

	got, err := store.Get(context.Background(), "bcll")
	require.NoError(t, err)
	assert.Equal(t, "state", string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Postgres_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "draft_snapshots"`)).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot_key", "blob", "updated_at"}))

	_, err := store.Get(context.Background(), "bcll")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Postgres_PutUpserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "draft_snapshots"`) + `.*ON CONFLICT \("snapshot_key"\) DO UPDATE`).
		WithArgs("bcll", []byte("state"), snapTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Put(context.Background(), "bcll", []byte("state")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Postgres_PutError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "draft_snapshots"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.Put(context.Background(), "bcll", []byte("state"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put snapshot bcll")
}

func TestLocalNotifier_InOrderAndUnsubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := NewLocalNotifier()

	var mu sync.Mutex
	calls := 0
	got := make(chan int, 8)
	unsubscribe, err := n.Subscribe(ctx, "k", func() {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		got <- c
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n.Subscribers("k"))

	require.NoError(t, n.Notify(ctx, "k"))
	require.NoError(t, n.Notify(ctx, "other"))
	require.NoError(t, n.Notify(ctx, "k"))

	for want := 1; want <= 2; want++ {
		select {
		case c := <-got:
			assert.Equal(t, want, c)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notification %d", want)
		}
	}

	unsubscribe()
	unsubscribe()
	assert.Eventually(t, func() bool { return n.Subscribers("k") == 0 }, time.Second, 10*time.Millisecond)
}

func TestCloseOnce_ConcurrentCallers(t *testing.T) {
	ch := make(chan struct{})
	stop := closeOnce(ch)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stop()
		}()
	}
	wg.Wait()
	stop()

	select {
	case <-ch:
	default:
		t.Fatal("channel still open")
	}
}

func TestLocalNotifier_UnsubscribeFromManyGoroutines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n := NewLocalNotifier()

	unsubscribe, err := n.Subscribe(ctx, "k", func() {})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsubscribe()
		}()
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return n.Subscribers("k") == 0 }, time.Second, 10*time.Millisecond)
}

func TestChannel_MirrorFollowsWriter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel("", NewMemoryStore(), NewLocalNotifier(), zap.NewNop())
	assert.Equal(t, DefaultKey, ch.Key())

	s := sampleState(t)
	ch.Writer().Publish(ctx, FromState(s, snapTime))

	out := make(chan Snapshot, 4)
	unsubscribe, err := ch.Mirror().Subscribe(ctx, func(snap Snapshot) { out <- snap })
	require.NoError(t, err)
	defer unsubscribe()

	initial := recv(t, out, time.Second)
	assert.Equal(t, s, initial.State(), "mirror reads the slot on subscribe")

	_, s2, err := engine.Apply(s, engine.Command{Type: engine.CmdUndoLastPick})
	require.NoError(t, err)
	ch.Writer().Publish(ctx, FromState(s2, snapTime.Add(time.Second)))

	next := recv(t, out, time.Second)
	assert.Equal(t, snapTime.Add(time.Second).UnixMilli(), next.Timestamp)
	assert.Equal(t, 0, next.DraftState.CurrentPick)

	ch.Writer().Clear(ctx)
	recvNone(t, out, 100*time.Millisecond)
	_, err = ch.Mirror().Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannel_ForLobbyIsolatesKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := NewChannel("bcll", NewMemoryStore(), NewLocalNotifier(), nil)
	spring := base.ForLobby("SPRING")
	fall := base.ForLobby("FALL")
	assert.Equal(t, "bcll:SPRING", spring.Key())

	out := make(chan Snapshot, 4)
	unsubscribe, err := fall.Mirror().Subscribe(ctx, func(snap Snapshot) { out <- snap })
	require.NoError(t, err)
	defer unsubscribe()

	spring.Writer().Publish(ctx, FromState(sampleState(t), snapTime))
	recvNone(t, out, 100*time.Millisecond)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingStore) Put(context.Context, string, []byte) error   { return errors.New("down") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("down") }

func TestChannel_StoreFailuresAreLoggedAndSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zapcore.WarnLevel)
	ch := NewChannel("bcll", failingStore{}, NewLocalNotifier(), zap.New(core))

	ch.Writer().Publish(ctx, FromState(sampleState(t), snapTime))
	ch.Writer().Clear(ctx)

	called := false
	_, err := ch.Mirror().Subscribe(ctx, func(Snapshot) { called = true })
	require.NoError(t, err)
	assert.False(t, called)

	assert.Equal(t, 1, logs.FilterMessage("store snapshot").Len())
	assert.Equal(t, 1, logs.FilterMessage("clear snapshot").Len())
	assert.Equal(t, 1, logs.FilterMessage("load snapshot").Len())
	assert.Equal(t, "bcll", logs.All()[0].ContextMap()["key"])
}

type closingStore struct {
	*MemoryStore
	closed bool
}

func (s *closingStore) Close() error {
	s.closed = true
	return errors.New("close failed")
}

func TestChannel_CloseReleasesBackends(t *testing.T) {
	store := &closingStore{MemoryStore: NewMemoryStore()}
	ch := NewChannel("bcll", store, NewLocalNotifier(), nil)

	err := ch.Close()
	assert.True(t, store.closed)
	assert.EqualError(t, err, "close failed")
}
