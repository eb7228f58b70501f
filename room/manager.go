package room

import (
	"context"
	"crypto/rand"
	"errors"
	"sort"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/wfunc/stemarena/challenge"
	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/network"
)

const (
	// RoomIDLength 房间码长度
	RoomIDLength   = 6
	roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxIDAttempts  = 16
)

// GenerateRoomID returns a random code from an alphabet without the
// easily confused 0/O and 1/I.
func GenerateRoomID() (string, error) {
	buf := make([]byte, RoomIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(buf), nil
}

// EvictHook is called once per room after it left the registry.
type EvictHook func(roomID string, playerIDs []string, reason string)

type Option func(*Manager)

func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithProvider(p challenge.Provider) Option {
	return func(m *Manager) {
		if p != nil {
			m.provider = p
		}
	}
}

func WithEvictHook(fn EvictHook) Option {
	return func(m *Manager) { m.onEvict = fn }
}

// WithIDGenerator replaces GenerateRoomID.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// Manager 管理所有房间
type Manager struct {
	rooms       map[string]*Room
	settings    Settings
	mutex       sync.RWMutex
	scheduler   Scheduler
	broadcaster Broadcaster
	provider    challenge.Provider
	observer    Observer
	onEvict     EvictHook
	newID       func() (string, error)
	seq         uint64
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(settings Settings, scheduler Scheduler, broadcaster Broadcaster, opts ...Option) *Manager {
	m := &Manager{
		rooms:       make(map[string]*Room),
		settings:    settings,
		scheduler:   scheduler,
		broadcaster: broadcaster,
		provider:    challenge.NewGenerator(0),
		observer:    nopObserver{},
		newID:       GenerateRoomID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Settings returns the settings new rooms are created with.
func (m *Manager) Settings() Settings {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.settings
}

// UpdateSettings applies to rooms created from now on.
func (m *Manager) UpdateSettings(settings Settings) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.settings = settings
}

// Create opens a room with playerID as its first player and sends them
// the room code.
func (m *Manager) Create(playerID, name string) (*Room, error) {
	room, err := m.register(playerID, name)
	if err != nil {
		return nil, err
	}

	m.observer.RoomOpened()
	if err := m.broadcaster.SendToPlayer(playerID, network.MsgTypeRoomCreated, network.RoomCreated{RoomID: room.ID, YourID: playerID}); err != nil {
		logger.Log.Warnw("send room created failed", "room", room.ID, "player", playerID, "error", err)
	}
	logger.Log.Infow("room created", "room", room.ID, "player", playerID)
	return room, nil
}

func (m *Manager) register(playerID, name string) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.newID()
		if err != nil {
			return nil, err
		}
		if _, exists := m.rooms[id]; exists {
			continue
		}
		m.seq++
		room := newRoom(id, m.settings, m, playerID, name)
		room.seq = m.seq
		m.rooms[id] = room
		return room, nil
	}
	return nil, ErrIDCollision
}

// Lookup 从管理器中获取一个房间
func (m *Manager) Lookup(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Rooms returns the live rooms in creation order.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].seq < rooms[j].seq })
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

func (m *Manager) Join(ctx context.Context, roomID, playerID, name string) error {
	room, ok := m.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return notFoundIfClosed(room.Join(ctx, playerID, name))
}

func (m *Manager) Submit(roomID, playerID string, sub Submission) error {
	room, ok := m.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return notFoundIfClosed(room.Submit(playerID, sub))
}

func (m *Manager) VoteRematch(roomID, playerID string) error {
	room, ok := m.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return notFoundIfClosed(room.VoteRematch(playerID))
}

func (m *Manager) Leave(roomID, playerID string) error {
	room, ok := m.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	return notFoundIfClosed(room.Leave(playerID))
}

// Evict closes a room and waits for its loop to stop.
func (m *Manager) Evict(ctx context.Context, roomID, reason string) error {
	room, ok := m.Lookup(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	room.post(evictEvent{reason: reason})

	select {
	case <-room.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown evicts every room concurrently.
func (m *Manager) Shutdown(ctx context.Context) error {
	var wg conc.WaitGroup
	for _, room := range m.Rooms() {
		room := room
		wg.Go(func() {
			if err := m.Evict(ctx, room.ID, ReasonShutdown); err != nil && !errors.Is(err, ErrRoomNotFound) {
				logger.Log.Warnw("evict room failed", "room", room.ID, "error", err)
			}
		})
	}
	wg.Wait()
	return ctx.Err()
}

// removeRoom runs on the room loop while the room is being evicted.
func (m *Manager) removeRoom(r *Room, playerIDs []string, reason string) {
	m.mutex.Lock()
	if cur, ok := m.rooms[r.ID]; !ok || cur != r {
		m.mutex.Unlock()
		return
	}
	delete(m.rooms, r.ID)
	hook := m.onEvict
	m.mutex.Unlock()

	if hook != nil {
		hook(r.ID, playerIDs, reason)
	}
	logger.Log.Infow("room closed", "room", r.ID, "reason", reason)
}

func notFoundIfClosed(err error) error {
	if errors.Is(err, ErrRoomClosed) {
		return ErrRoomNotFound
	}
	return err
}
