// services/lobby_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/wfunc/stemarena/room"
)

const defaultQueryTimeout = 2 * time.Second

// RoomSummary 房间列表中的一项
type RoomSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Players   int       `json:"players"`
	Host      string    `json:"host"`
	Round     int       `json:"round"`
	CreatedAt time.Time `json:"created_at"`
}

// LobbyService answers read-only questions about live rooms for the
// HTTP and RPC admin surfaces.
type LobbyService struct {
	rooms   *room.Manager
	timeout time.Duration
}

func NewLobbyService(rooms *room.Manager) *LobbyService {
	return &LobbyService{rooms: rooms, timeout: defaultQueryTimeout}
}

// ListRooms 列出所有房间；openOnly 时只返回等待第二名玩家的房间
func (s *LobbyService) ListRooms(ctx context.Context, openOnly bool) ([]RoomSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summaries := make([]RoomSummary, 0)
	for _, r := range s.rooms.Rooms() {
		snap, err := r.Snapshot(ctx)
		if errors.Is(err, room.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if openOnly && snap.Status != room.StatusWaiting.String() {
			continue
		}
		summaries = append(summaries, summarize(snap))
	}
	return summaries, nil
}

// GetRoom returns the full snapshot of one room.
func (s *LobbyService) GetRoom(ctx context.Context, roomID string) (room.Snapshot, error) {
	r, ok := s.rooms.Lookup(roomID)
	if !ok {
		return room.Snapshot{}, room.ErrRoomNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := r.Snapshot(ctx)
	if errors.Is(err, room.ErrRoomClosed) {
		return room.Snapshot{}, room.ErrRoomNotFound
	}
	return snap, err
}

func summarize(snap room.Snapshot) RoomSummary {
	summary := RoomSummary{
		ID:        snap.ID,
		Status:    snap.Status,
		Players:   len(snap.Players),
		Round:     snap.Round,
		CreatedAt: snap.CreatedAt,
	}
	if len(snap.Players) > 0 {
		summary.Host = snap.Players[0].Name
	}
	return summary
}
