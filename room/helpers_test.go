package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/challenge"
	"github.com/wfunc/stemarena/models"
)

// manualTimer is a timer that only fires when a test says so.
type manualTimer struct {
	id       int64
	delay    time.Duration
	interval time.Duration
	cb       func()
}

type manualScheduler struct {
	mu     sync.Mutex
	nextID int64
	live   map[int64]*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{live: make(map[int64]*manualTimer)}
}

func (s *manualScheduler) AddTimer(delay, interval time.Duration, cb func()) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.live[s.nextID] = &manualTimer{id: s.nextID, delay: delay, interval: interval, cb: cb}
	return s.nextID
}

func (s *manualScheduler) RemoveTimer(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live[id]
	delete(s.live, id)
	return ok
}

func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*manualTimer, 0, len(s.live))
	for _, t := range s.live {
		out = append(out, t)
	}
	return out
}

func (s *manualScheduler) only(t *testing.T) *manualTimer {
	t.Helper()
	p := s.pending()
	require.Len(t, p, 1, "expected exactly one live timer")
	return p[0]
}

// fire runs the single live timer the way a real scheduler would.
func (s *manualScheduler) fire(t *testing.T) *manualTimer {
	t.Helper()
	tm := s.only(t)
	if tm.interval <= 0 {
		s.RemoveTimer(tm.id)
	}
	tm.cb()
	return tm
}

type message struct {
	to      string
	msgID   uint16
	payload any
}

type recorder struct {
	mu   sync.Mutex
	msgs []message
}

func (b *recorder) SendToPlayer(playerID string, msgID uint16, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, message{to: playerID, msgID: msgID, payload: v})
	return nil
}

func (b *recorder) BroadcastToPlayers(playerIDs []string, msgID uint16, v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range playerIDs {
		b.msgs = append(b.msgs, message{to: id, msgID: msgID, payload: v})
	}
	return nil
}

func (b *recorder) all() []message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]message(nil), b.msgs...)
}

func (b *recorder) of(msgID uint16) []message {
	var out []message
	for _, m := range b.all() {
		if m.msgID == msgID {
			out = append(out, m)
		}
	}
	return out
}

func (b *recorder) to(playerID string, msgID uint16) []message {
	var out []message
	for _, m := range b.of(msgID) {
		if m.to == playerID {
			out = append(out, m)
		}
	}
	return out
}

func (b *recorder) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = nil
}

func payload[T any](t *testing.T, m message) T {
	t.Helper()
	v, ok := m.payload.(T)
	require.True(t, ok, "payload is %T", m.payload)
	return v
}

// fixedProvider hands out the same challenges every time.
type fixedProvider struct{}

func (fixedProvider) GetChallenge(phase models.Phase) challenge.Challenge {
	switch phase {
	case models.PhaseArithmetic:
		return challenge.Challenge{Phase: phase, Question: "3 + 4", Answer: 7}
	case models.PhaseReaction:
		return challenge.Challenge{
			Phase:     phase,
			Chemicals: []string{"H₂", "O₂", "Fe", "Na"},
			Reactions: models.ReactionTable{
				models.MakePair("H₂", "O₂"): {Product: "2H₂O", Display: "2H₂ + O₂ → 2H₂O", Damage: 20, Bonus: 10},
			},
		}
	case models.PhaseShield:
		return challenge.Challenge{Phase: phase, Blocks: challenge.Blocks, Shields: challenge.Shields}
	default:
		return challenge.Challenge{Phase: phase}
	}
}

type eviction struct {
	roomID  string
	players []string
	reason  string
}

type countingObserver struct {
	mu       sync.Mutex
	opened   int
	closed   map[string]int
	phases   map[models.Phase]int
	results  map[bool]int
	finished map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		closed:   map[string]int{},
		phases:   map[models.Phase]int{},
		results:  map[bool]int{},
		finished: map[string]int{},
	}
}

func (o *countingObserver) RoomOpened() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened++
}

func (o *countingObserver) RoomClosed(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed[reason]++
}

func (o *countingObserver) PhaseStarted(p models.Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases[p]++
}

func (o *countingObserver) SubmissionResolved(_ models.Phase, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results[success]++
}

func (o *countingObserver) GameFinished(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished[reason]++
}

type harness struct {
	m        *Manager
	sched    *manualScheduler
	rec      *recorder
	observer *countingObserver

	mu        sync.Mutex
	evictions []eviction
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Budgets = Budgets{Arithmetic: 3, Reaction: 3, Shield: 3}
	return s
}

func newHarness(t *testing.T, mutate ...func(*Settings)) *harness {
	t.Helper()
	settings := testSettings()
	for _, fn := range mutate {
		fn(&settings)
	}

	h := &harness{sched: newManualScheduler(), rec: &recorder{}, observer: newCountingObserver()}
	h.m = NewRoomManager(settings, h.sched, h.rec,
		WithProvider(fixedProvider{}),
		WithObserver(h.observer),
		WithEvictHook(func(roomID string, players []string, reason string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.evictions = append(h.evictions, eviction{roomID, players, reason})
		}),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.m.Shutdown(ctx)
	})
	return h
}

func (h *harness) evicted() []eviction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]eviction(nil), h.evictions...)
}

// barrier waits until the room has processed everything posted before it
// and checks that at most one timer is live.
func (h *harness) barrier(t *testing.T, r *Room) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.LessOrEqual(t, len(h.sched.pending()), 1, "more than one live timer")
	return snap
}

// start creates a room for p1 (Ada), seats p2 (Bob) and runs the grace
// period so the arithmetic phase is open.
func (h *harness) start(t *testing.T) *Room {
	t.Helper()
	r, err := h.m.Create("p1", "Ada")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.m.Join(ctx, r.ID, "p2", "Bob"))

	h.barrier(t, r)
	h.sched.fire(t)
	snap := h.barrier(t, r)
	require.True(t, snap.Running)
	require.Equal(t, "bodmas", snap.Phase)
	return r
}

// fireAndWait fires the live timer n times, waiting on the room in between.
func (h *harness) fireAndWait(t *testing.T, r *Room, n int) Snapshot {
	t.Helper()
	var snap Snapshot
	for i := 0; i < n; i++ {
		h.sched.fire(t)
		snap = h.barrier(t, r)
	}
	return snap
}

func waitDone(t *testing.T, r *Room) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not close")
	}
}
