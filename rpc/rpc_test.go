package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/services"
	"github.com/wfunc/stemarena/timer"
)

type nopBroadcaster struct{}

func (nopBroadcaster) SendToPlayer(string, uint16, any) error         { return nil }
func (nopBroadcaster) BroadcastToPlayers([]string, uint16, any) error { return nil }

func TestArenaService_OverTCP(t *testing.T) {
	timers := timer.NewTimerManager(time.Millisecond)
	defer timers.Stop()
	rooms := room.NewRoomManager(room.DefaultSettings(), timers, nopBroadcaster{})
	defer rooms.Shutdown(context.Background())

	created, err := rooms.Create("p1", "Ada")
	require.NoError(t, err)

	srv, err := NewServer("127.0.0.1:0", NewArenaService(services.NewLobbyService(rooms)))
	require.NoError(t, err)
	go srv.Start()
	defer srv.Stop()

	client, err := rpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer client.Close()

	var list ListRoomsReply
	require.NoError(t, client.Call(ServiceName+".ListRooms", &ListRoomsArgs{OpenOnly: true}, &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.ID, list.Rooms[0].ID)
	assert.Equal(t, "Ada", list.Rooms[0].Host)

	var got GetRoomReply
	require.NoError(t, client.Call(ServiceName+".GetRoom", &GetRoomArgs{RoomID: created.ID}, &got))
	assert.Equal(t, "waiting", got.Room.Status)

	err = client.Call(ServiceName+".GetRoom", &GetRoomArgs{RoomID: "NOPE"}, &got)
	require.Error(t, err)
	assert.Equal(t, room.ErrRoomNotFound.Error(), err.Error())
}
