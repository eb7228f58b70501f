package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/stemarena/broadcast"
	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/models"
	"github.com/wfunc/stemarena/monitor"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/services"
	"github.com/wfunc/stemarena/session"
)

const joinTimeout = 5 * time.Second

type Options struct {
	Address      string
	ReadLimit    int64
	PingInterval time.Duration
	SendQueue    int // 每个连接的发送队列长度，0 表示同步写
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	httpServer     *http.Server
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    broadcast.Broadcaster
	lobby          *services.LobbyService
	monitor        *monitor.Monitor
	codec          network.Codec
	shutdownOnce   sync.Once
	shutdownChan   chan struct{}
}

func NewGameServer(
	opts Options,
	rooms *room.Manager,
	sessions *session.Manager,
	broadcaster broadcast.Broadcaster,
	lobby *services.LobbyService,
	mon *monitor.Monitor,
	codec network.Codec,
) *GameServer {
	s := &GameServer{
		opts:           opts,
		roomManager:    rooms,
		sessionManager: sessions,
		broadcaster:    broadcaster,
		lobby:          lobby,
		monitor:        mon,
		codec:          codec,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:              opts.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the HTTP surface: the websocket endpoint plus a few
// read-only admin endpoints.
func (s *GameServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/rooms", s.handleListRooms)
	r.Get("/rooms/{roomID}", s.handleGetRoom)
	r.Handle("/metrics", s.monitor.Handler())
	return r
}

func (s *GameServer) Start() error {
	logger.Log.Infof("Game server listening on %s", s.opts.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown tells every client, stops accepting requests and closes the
// websocket connections.
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() { close(s.shutdownChan) })

	_ = s.broadcaster.BroadcastToAll(network.MsgTypeError, network.ErrorMessage{Code: network.ErrCodeShutdown, Message: "server is shutting down"})
	err := s.httpServer.Shutdown(ctx)
	for _, sess := range s.sessionManager.All() {
		_ = sess.Close()
	}
	return err
}

func (s *GameServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"rooms":    s.roomManager.Count(),
		"sessions": s.sessionManager.Count(),
	})
}

func (s *GameServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("open") != ""
	rooms, err := s.lobby.ListRooms(r.Context(), openOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, network.ErrorMessage{Code: network.ErrCodeInternal, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	snap, err := s.lobby.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		writeJSON(w, http.StatusNotFound, network.ErrorMessage{Code: network.ErrCodeRoomNotFound})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, network.ErrorMessage{Code: network.ErrCodeInternal, Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debugw("write response failed", "error", err)
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn, s.opts.ReadLimit)
	wsConn.SetHeartbeat(s.opts.PingInterval)
	sess := session.NewSession(uuid.New().String(), wsConn, session.WithSendQueue(s.opts.SendQueue))
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		if roomID := sess.RoomID(); roomID != "" {
			_ = s.roomManager.Leave(roomID, sess.GetID())
		}
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		sess.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
		}

		packet, err := wsConn.ReadPacket()
		if errors.Is(err, io.ErrShortBuffer) {
			s.sendError(sess, network.ErrCodeBadRequest, "truncated packet")
			continue
		}
		if err != nil {
			return
		}
		wsConn.ExtendDeadline()
		s.handlePacket(sess, packet)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	defer func() { s.monitor.ObserveMessageLatency(time.Since(start)) }()
	s.monitor.IncMessagesReceived(network.MsgName(packet.MsgID))

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.handleLeaveRoom(sess)
	case network.MsgTypeSubmit:
		s.handleSubmit(sess, packet)
	case network.MsgTypeRematch:
		s.handleRematch(sess)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		s.sendError(sess, network.ErrCodeBadRequest, "unknown message type")
	}
}

func (s *GameServer) decode(packet *network.Packet, v any) error {
	if len(packet.Data) == 0 {
		return nil
	}
	return s.codec.Unmarshal(packet.Data, v)
}

func (s *GameServer) sendError(sess *session.Session, code, message string) {
	if err := s.broadcaster.SendToPlayer(sess.GetID(), network.MsgTypeError, network.ErrorMessage{Code: code, Message: message}); err != nil {
		logger.Log.Debugw("send error failed", "session", sess.GetID(), "error", err)
	}
}

// rememberName keeps the last non-empty name a player asked for.
func rememberName(sess *session.Session, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		sess.SetName(name)
	}
	return sess.Name()
}

// switchRoom records the new room and walks out of the previous one.
func (s *GameServer) switchRoom(sess *session.Session, roomID string) {
	previous := sess.RoomID()
	sess.SetRoomID(roomID)
	if previous != "" && previous != roomID {
		_ = s.roomManager.Leave(previous, sess.GetID())
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req network.CreateRoomRequest
	if err := s.decode(packet, &req); err != nil {
		s.sendError(sess, network.ErrCodeBadRequest, err.Error())
		return
	}

	r, err := s.roomManager.Create(sess.GetID(), rememberName(sess, req.Name))
	if err != nil {
		logger.Log.Errorf("Session %s failed to create room: %v", sess.GetID(), err)
		s.sendError(sess, network.ErrCodeInternal, "could not create room")
		return
	}
	s.switchRoom(sess, r.ID)
	logger.Log.Infof("Session %s created room %s", sess.GetID(), r.ID)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req network.JoinRoomRequest
	if err := s.decode(packet, &req); err != nil {
		s.sendError(sess, network.ErrCodeBadRequest, err.Error())
		return
	}
	roomID := strings.ToUpper(strings.TrimSpace(req.RoomID))
	if roomID == "" {
		s.sendError(sess, network.ErrCodeBadRequest, "room_id is required")
		return
	}
	if roomID == sess.RoomID() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	defer cancel()

	err := s.roomManager.Join(ctx, roomID, sess.GetID(), rememberName(sess, req.Name))
	switch {
	case err == nil:
		s.switchRoom(sess, roomID)
		logger.Log.Infof("Session %s joined room %s", sess.GetID(), roomID)
	case errors.Is(err, room.ErrRoomNotFound):
		s.sendError(sess, network.ErrCodeRoomNotFound, "no such room")
	case errors.Is(err, room.ErrRoomFull):
		s.sendError(sess, network.ErrCodeRoomFull, "room is full")
	default:
		logger.Log.Errorf("Session %s failed to join room %s: %v", sess.GetID(), roomID, err)
		s.sendError(sess, network.ErrCodeInternal, "could not join room")
	}
}

func (s *GameServer) handleLeaveRoom(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		return
	}
	sess.SetRoomID("")
	_ = s.roomManager.Leave(roomID, sess.GetID())
}

// handleSubmit forwards an answer. A body that cannot be decoded is still
// submitted, with empty content, so it is graded as a wrong answer.
func (s *GameServer) handleSubmit(sess *session.Session, packet *network.Packet) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.sendError(sess, network.ErrCodeNotInRoom, "join a room first")
		return
	}

	var sub room.Submission
	var req network.SubmitRequest
	if err := s.decode(packet, &req); err == nil {
		if phase, err := models.ParsePhase(req.Phase); err == nil {
			sub = room.Submission{
				Phase:  phase,
				Answer: req.Answer,
				Pair:   models.MakePair(req.First, req.Second),
			}
		}
	}

	if err := s.roomManager.Submit(roomID, sess.GetID(), sub); errors.Is(err, room.ErrRoomNotFound) {
		sess.SetRoomID("")
		s.sendError(sess, network.ErrCodeRoomNotFound, "room is gone")
	}
}

func (s *GameServer) handleRematch(sess *session.Session) {
	roomID := sess.RoomID()
	if roomID == "" {
		s.sendError(sess, network.ErrCodeNotInRoom, "join a room first")
		return
	}
	if err := s.roomManager.VoteRematch(roomID, sess.GetID()); errors.Is(err, room.ErrRoomNotFound) {
		sess.SetRoomID("")
		s.sendError(sess, network.ErrCodeRoomNotFound, "room is gone")
	}
}
