// room/room.go
package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/stemarena/challenge"
	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/models"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/state"
)

// RoomStatus 表示房间的业务状态，例如等待、游戏中等
type RoomStatus int

const (
	StatusIdle RoomStatus = iota
	StatusWaiting
	StatusGaming
	StatusSettlement
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusGaming:
		return "gaming"
	case StatusSettlement:
		return "settlement"
	default:
		return "idle"
	}
}

const (
	// MaxPlayers 每个房间固定两名玩家
	MaxPlayers = 2

	inboxSize   = 64
	maxNameSize = 24
)

// Submission is one answer from a player. Phase PhaseUnknown targets
// whatever phase is running. Answer is read in the arithmetic phase, Pair
// in the other two.
type Submission struct {
	Phase  models.Phase
	Answer string
	Pair   models.Pair
}

type player struct {
	id    string
	state models.PlayerState
}

func (p *player) GetID() string { return p.id }

// Snapshot is a consistent copy of a room taken on its own loop.
type Snapshot struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	Phase        string               `json:"phase,omitempty"`
	Round        int                  `json:"round"`
	TimeLeft     int                  `json:"time_left"`
	Running      bool                 `json:"running"`
	Players      []network.PlayerView `json:"players"`
	Answered     []string             `json:"answered,omitempty"`
	RematchVotes int                  `json:"rematch_votes"`
	Winner       string               `json:"winner,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// roomState is implemented by the three room states.
type roomState interface {
	state.State
	status() RoomStatus
	fill(snap *Snapshot)
}

type (
	joinEvent struct {
		playerID string
		name     string
		reply    chan error
	}
	submitEvent struct {
		playerID string
		sub      Submission
	}
	rematchEvent  struct{ playerID string }
	leaveEvent    struct{ playerID string }
	evictEvent    struct{ reason string }
	snapshotEvent struct{ reply chan Snapshot }
)

// Room 一场双人对战。所有状态只在 loop 协程里修改，外部通过 inbox 投递事件。
type Room struct {
	ID        string
	CreatedAt time.Time
	seq       uint64

	settings    Settings
	broadcaster Broadcaster
	provider    challenge.Provider
	observer    Observer
	onEvict     func(r *Room, playerIDs []string, reason string)

	inbox  chan any
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// 以下字段只在 loop 协程中访问
	players []*player
	machine *state.BaseStateMachine
	clock   *phaseClock
	evicted bool
}

func newRoom(id string, settings Settings, m *Manager, creatorID, creatorName string) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		ID:          id,
		CreatedAt:   time.Now(),
		settings:    settings,
		broadcaster: m.broadcaster,
		provider:    m.provider,
		observer:    m.observer,
		onEvict:     m.removeRoom,
		inbox:       make(chan any, inboxSize),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	r.clock = newPhaseClock(m.scheduler, func(ev timerEvent) bool { return r.post(ev) })
	r.players = append(r.players, &player{id: creatorID, state: models.NewPlayerState(displayName(creatorName, 0))})

	// 初始化状态机
	r.machine = state.NewBaseStateMachine(&waitingState{Base: state.Base{ID: stateWaiting}, room: r})
	_ = r.machine.AddTransition(stateWaiting, statePlaying, nil)
	_ = r.machine.AddTransition(statePlaying, stateSettlement, nil)
	_ = r.machine.AddTransition(stateSettlement, statePlaying, nil)

	go r.loop()
	return r
}

func displayName(name string, index int) string {
	runes := []rune(strings.TrimSpace(strings.ToValidUTF8(name, "")))
	if len(runes) > maxNameSize {
		runes = runes[:maxNameSize]
	}
	if s := string(runes); s != "" {
		return s
	}
	return fmt.Sprintf("Player %d", index+1)
}

// --- 对外接口，可在任意协程调用 ---

// Done is closed once the room loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Join seats a second player and starts the match.
func (r *Room) Join(ctx context.Context, playerID, name string) error {
	reply := make(chan error, 1)
	if !r.post(joinEvent{playerID: playerID, name: name, reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues an answer. Submissions that do not fit the current phase
// are dropped silently on the loop.
func (r *Room) Submit(playerID string, sub Submission) error {
	if !r.post(submitEvent{playerID: playerID, sub: sub}) {
		return ErrRoomClosed
	}
	return nil
}

func (r *Room) VoteRematch(playerID string) error {
	if !r.post(rematchEvent{playerID: playerID}) {
		return ErrRoomClosed
	}
	return nil
}

// Leave tells the other player and closes the room.
func (r *Room) Leave(playerID string) error {
	if !r.post(leaveEvent{playerID: playerID}) {
		return ErrRoomClosed
	}
	return nil
}

func (r *Room) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !r.post(snapshotEvent{reply: reply}) {
		return Snapshot{}, ErrRoomClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		select {
		case snap := <-reply:
			return snap, nil
		default:
			return Snapshot{}, ErrRoomClosed
		}
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (r *Room) post(ev any) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// --- loop 协程 ---

func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.clock.stop()
			return
		case ev := <-r.inbox:
			r.handle(ev)
		}
	}
}

func (r *Room) handle(ev any) {
	if r.evicted {
		switch ev := ev.(type) {
		case joinEvent:
			ev.reply <- ErrRoomClosed
		case snapshotEvent:
			ev.reply <- r.snapshot()
		}
		return
	}

	switch ev := ev.(type) {
	case joinEvent:
		ev.reply <- r.handleJoin(ev.playerID, ev.name)
	case submitEvent:
		r.dispatch(ev.playerID, ev.sub)
	case rematchEvent:
		r.dispatch(ev.playerID, rematchVote{})
	case leaveEvent:
		r.handleLeave(ev.playerID)
	case evictEvent:
		r.evict(ev.reason)
	case timerEvent:
		r.clock.fire(ev)
	case snapshotEvent:
		ev.reply <- r.snapshot()
	default:
		logger.Log.Warnw("unknown room event", "room", r.ID, "event", fmt.Sprintf("%T", ev))
	}
}

func (r *Room) current() roomState {
	return r.machine.GetCurrentState().(roomState)
}

func (r *Room) dispatch(playerID string, action any) {
	p := r.player(playerID)
	if p == nil {
		return
	}
	if err := r.current().HandleAction(p, action); err != nil {
		logger.Log.Warnw("room action failed", "room", r.ID, "player", playerID, "error", err)
	}
}

func (r *Room) handleJoin(playerID, name string) error {
	if r.player(playerID) != nil {
		return ErrAlreadyJoined
	}
	if len(r.players) >= MaxPlayers {
		return ErrRoomFull
	}

	r.players = append(r.players, &player{id: playerID, state: models.NewPlayerState(displayName(name, len(r.players)))})
	if err := r.machine.ChangeState(newPlayingState(r, false)); err != nil {
		r.players = r.players[:len(r.players)-1]
		return err
	}
	logger.Log.Infow("player joined", "room", r.ID, "player", playerID)
	return nil
}

func (r *Room) handleLeave(playerID string) {
	if r.player(playerID) == nil {
		return
	}
	r.clock.stop()
	for _, p := range r.players {
		if p.id != playerID {
			r.sendTo(p.id, network.MsgTypePeerLeft, network.PeerLeft{PlayerID: playerID})
		}
	}
	if r.current().status() == StatusGaming {
		r.observer.GameFinished(ReasonPeerLeft)
	}
	r.evict(ReasonPeerLeft)
}

// evict 关闭房间，只执行一次
func (r *Room) evict(reason string) {
	if r.evicted {
		return
	}
	r.evicted = true
	r.clock.stop()
	if reason != ReasonPeerLeft {
		r.broadcast(network.MsgTypeRoomClosed, network.RoomClosed{RoomID: r.ID, Reason: reason})
	}
	if r.onEvict != nil {
		r.onEvict(r, r.playerIDs(), reason)
	}
	r.observer.RoomClosed(reason)
	r.cancel()
}

func (r *Room) snapshot() Snapshot {
	cur := r.current()
	snap := Snapshot{
		ID:        r.ID,
		Status:    cur.status().String(),
		Players:   r.views(),
		CreatedAt: r.CreatedAt,
	}
	cur.fill(&snap)
	return snap
}

// --- helpers ---

func (r *Room) player(id string) *player {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) opponent(id string) *player {
	for _, p := range r.players {
		if p.id != id {
			return p
		}
	}
	return nil
}

func (r *Room) playerIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.id
	}
	return ids
}

func (r *Room) views() []network.PlayerView {
	views := make([]network.PlayerView, len(r.players))
	for i, p := range r.players {
		views[i] = network.PlayerView{
			ID:     p.id,
			Name:   p.state.Name,
			HP:     p.state.HP,
			Shield: p.state.Shield,
			Energy: p.state.Energy,
			Combo:  p.state.Combo,
		}
	}
	return views
}

func (r *Room) anyDown() bool {
	for _, p := range r.players {
		if !p.state.Alive() {
			return true
		}
	}
	return false
}

func (r *Room) broadcast(msgID uint16, v any) {
	if err := r.broadcaster.BroadcastToPlayers(r.playerIDs(), msgID, v); err != nil {
		logger.Log.Warnw("broadcast failed", "room", r.ID, "msg", network.MsgName(msgID), "error", err)
	}
}

func (r *Room) sendTo(playerID string, msgID uint16, v any) {
	if err := r.broadcaster.SendToPlayer(playerID, msgID, v); err != nil {
		logger.Log.Debugw("send failed", "room", r.ID, "player", playerID, "msg", network.MsgName(msgID), "error", err)
	}
}
