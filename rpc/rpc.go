package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/services"
)

// ServiceName is the name ArenaService is registered under.
const ServiceName = "Arena"

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer listens on addr and registers service. A private rpc.Server
// is used so tests can run several servers in one process.
func NewServer(addr string, service *ArenaService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, service); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		rpc:      srv,
	}, nil
}

// Addr is the address actually bound, useful with port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once the listener
// is closed.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// ArenaService is the struct that exposes RPC methods.
type ArenaService struct {
	lobby *services.LobbyService
}

// NewArenaService creates a new ArenaService.
func NewArenaService(lobby *services.LobbyService) *ArenaService {
	return &ArenaService{lobby: lobby}
}

// The methods below follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.

type ListRoomsArgs struct {
	OpenOnly bool
}

type ListRoomsReply struct {
	Rooms []services.RoomSummary
}

func (as *ArenaService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	rooms, err := as.lobby.ListRooms(context.Background(), args.OpenOnly)
	if err != nil {
		return err
	}
	reply.Rooms = rooms
	return nil
}

type GetRoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	Room room.Snapshot
}

func (as *ArenaService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	snap, err := as.lobby.GetRoom(context.Background(), args.RoomID)
	if err != nil {
		return err
	}
	reply.Room = snap
	return nil
}
