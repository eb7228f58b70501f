// session/session.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/network"
)

var (
	// ErrSendQueueFull means the peer stopped reading; the session is closed.
	ErrSendQueueFull = errors.New("session send queue full")
	ErrSessionClosed = errors.New("session closed")
)

type outbound struct {
	msgID uint16
	data  []byte
}

// Session 一条客户端连接。ID 同时作为玩家在房间里的 ID。
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	name       string
	roomID     string
	lastActive time.Time
	mutex      sync.RWMutex

	// 发送队列，为 nil 时 Send 直接写连接
	queue     chan outbound
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

type Option func(*Session)

// WithSendQueue makes Send enqueue up to size packets and return at once; a
// writer goroutine drains the queue onto the connection. A peer that lets
// the queue fill up is disconnected.
func WithSendQueue(size int) Option {
	return func(s *Session) {
		if size > 0 {
			s.queue = make(chan outbound, size)
		}
	}
}

func NewSession(id string, conn network.Connection, opts ...Option) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue != nil {
		go s.writeLoop()
	} else {
		close(s.done)
	}
	return s
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	if s.queue == nil {
		return s.Conn.Send(msgID, data)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.queue <- outbound{msgID: msgID, data: data}:
		return nil
	default:
		logger.Log.Warnw("send queue full, dropping session", "session", s.ID, "msg", network.MsgName(msgID))
		go s.Close()
		return ErrSendQueueFull
	}
}

// writeLoop 把队列写到连接上，队列关闭后排空并关闭连接
func (s *Session) writeLoop() {
	defer close(s.done)
	failed := false
	for m := range s.queue {
		if failed {
			continue
		}
		if err := s.Conn.Send(m.msgID, m.data); err != nil {
			logger.Log.Debugw("write failed", "session", s.ID, "error", err)
			failed = true
			_ = s.Conn.Close()
		}
	}
	_ = s.Conn.Close()
}

// Done is closed once everything queued before Close has been written.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) GetID() string {
	return s.ID
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

// RoomID 当前所在房间，空字符串表示不在房间里
func (s *Session) RoomID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.roomID
}

func (s *Session) SetRoomID(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.roomID = roomID
}

// Name is the display name the player last asked for.
func (s *Session) Name() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.name
}

func (s *Session) SetName(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.name = name
}

// Close stops the session. With a send queue, packets already queued are
// still written before the connection closes.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.queue == nil {
			err = s.Conn.Close()
			return
		}
		s.mutex.Lock()
		s.closed = true
		close(s.queue)
		s.mutex.Unlock()
	})
	return err
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a snapshot of every connected session.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// ClearRoom detaches the given sessions from roomID. Sessions that already
// moved to another room are left alone.
func (m *Manager) ClearRoom(roomID string, sessionIDs []string) {
	for _, id := range sessionIDs {
		if session, ok := m.Get(id); ok {
			session.mutex.Lock()
			if session.roomID == roomID {
				session.roomID = ""
			}
			session.mutex.Unlock()
		}
	}
}
