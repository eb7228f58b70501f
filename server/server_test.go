package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/broadcast"
	"github.com/wfunc/stemarena/challenge"
	"github.com/wfunc/stemarena/models"
	"github.com/wfunc/stemarena/monitor"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/services"
	"github.com/wfunc/stemarena/session"
	"github.com/wfunc/stemarena/timer"
)

type fixedProvider struct{}

func (fixedProvider) GetChallenge(phase models.Phase) challenge.Challenge {
	if phase == models.PhaseArithmetic {
		return challenge.Challenge{Phase: phase, Question: "3 + 4", Answer: 7}
	}
	return challenge.Challenge{Phase: phase, Blocks: challenge.Blocks, Shields: challenge.Shields}
}

type testEnv struct {
	server *GameServer
	http   *httptest.Server
	rooms  *room.Manager
	codec  network.Codec
}

func newTestEnv(t *testing.T, codec network.Codec) *testEnv {
	t.Helper()

	timers := timer.NewTimerManager(time.Millisecond)
	t.Cleanup(timers.Stop)

	settings := room.DefaultSettings()
	settings.GraceDelay = 20 * time.Millisecond
	settings.CooldownDelay = 20 * time.Millisecond
	settings.Budgets = room.Budgets{Arithmetic: 60, Reaction: 60, Shield: 60}

	sessions := session.NewManager()
	b := broadcast.NewSessionBroadcaster(sessions, codec)
	mon := monitor.NewMonitor("test")
	rooms := room.NewRoomManager(settings, timers, b,
		room.WithProvider(fixedProvider{}),
		room.WithObserver(mon),
		room.WithEvictHook(func(roomID string, ids []string, _ string) { sessions.ClearRoom(roomID, ids) }),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rooms.Shutdown(ctx)
	})

	gs := NewGameServer(Options{ReadLimit: 4096, PingInterval: time.Minute, SendQueue: 64}, rooms, sessions, b, services.NewLobbyService(rooms), mon, codec)
	ts := httptest.NewServer(gs.Routes())
	t.Cleanup(ts.Close)

	return &testEnv{server: gs, http: ts, rooms: rooms, codec: codec}
}

type client struct {
	t     *testing.T
	conn  *websocket.Conn
	codec network.Codec
}

func (e *testEnv) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, codec: e.codec}
}

func (c *client) send(msgID uint16, v any) {
	c.t.Helper()
	body, err := c.codec.Marshal(v)
	require.NoError(c.t, err)
	c.sendRaw(msgID, body)
}

func (c *client) sendRaw(msgID uint16, body []byte) {
	c.t.Helper()
	packet, err := network.EncodePacket(msgID, body)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.BinaryMessage, packet))
}

// expect 读到指定消息为止，中间的其他消息丢弃
func (c *client) expect(msgID uint16, v any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, raw, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %s", network.MsgName(msgID))
		packet, err := network.DecodePacket(raw)
		require.NoError(c.t, err)
		if packet.MsgID != msgID {
			continue
		}
		if v != nil {
			require.NoError(c.t, c.codec.Unmarshal(packet.Data, v))
		}
		return
	}
}

func (e *testEnv) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(e.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestGameServer_Match(t *testing.T) {
	for _, codec := range []network.Codec{network.JSONCodec{}, network.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			env := newTestEnv(t, codec)
			ada, bob := env.dial(t), env.dial(t)

			ada.send(network.MsgTypeCreateRoom, network.CreateRoomRequest{Name: "Ada"})
			var created network.RoomCreated
			ada.expect(network.MsgTypeRoomCreated, &created)
			require.Len(t, created.RoomID, room.RoomIDLength)

			var open []services.RoomSummary
			require.Equal(t, http.StatusOK, env.getJSON(t, "/rooms?open=1", &open))
			require.Len(t, open, 1)
			assert.Equal(t, "Ada", open[0].Host)

			bob.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: "ZZZZZZ", Name: "Bob"})
			var notFound network.ErrorMessage
			bob.expect(network.MsgTypeError, &notFound)
			assert.Equal(t, network.ErrCodeRoomNotFound, notFound.Code)

			bob.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: strings.ToLower(created.RoomID), Name: "Bob"})
			var start network.GameStart
			bob.expect(network.MsgTypeGameStart, &start)
			assert.Equal(t, created.RoomID, start.RoomID)
			require.Len(t, start.Players, 2)
			assert.Equal(t, "Ada", start.Players[0].Name)
			assert.Equal(t, "Bob", start.Players[1].Name)

			var welcome network.Welcome
			ada.expect(network.MsgTypeWelcome, &welcome)
			assert.Equal(t, created.YourID, welcome.YourID)

			var phase network.PhaseStart
			ada.expect(network.MsgTypePhaseStart, &phase)
			assert.Equal(t, "bodmas", phase.Phase)
			assert.Equal(t, "3 + 4", phase.Question)
			bob.expect(network.MsgTypePhaseStart, nil)

			ada.send(network.MsgTypeSubmit, network.SubmitRequest{Phase: "bodmas", Answer: "7"})
			var result network.SubmissionResult
			bob.expect(network.MsgTypeSubmissionResult, &result)
			assert.True(t, result.Success)
			assert.Equal(t, created.YourID, result.PlayerID)
			assert.Equal(t, 10, result.Damage)
			assert.Equal(t, 90, result.Players[1].HP)

			var end network.PhaseEnd
			ada.expect(network.MsgTypePhaseEnd, &end)
			assert.Equal(t, "chemical", end.NextPhase)

			require.NoError(t, bob.conn.Close())
			var left network.PeerLeft
			ada.expect(network.MsgTypePeerLeft, &left)
			assert.NotEmpty(t, left.PlayerID)

			assert.Eventually(t, func() bool { return env.rooms.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
		})
	}
}

func TestGameServer_Errors(t *testing.T) {
	env := newTestEnv(t, network.JSONCodec{})
	c := env.dial(t)

	var msg network.ErrorMessage
	c.send(network.MsgTypeSubmit, network.SubmitRequest{Answer: "7"})
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeNotInRoom, msg.Code)

	c.send(network.MsgTypeRematch, nil)
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeNotInRoom, msg.Code)

	c.sendRaw(4242, nil)
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeBadRequest, msg.Code)

	c.sendRaw(network.MsgTypeJoinRoom, []byte("{"))
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeBadRequest, msg.Code)

	c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{})
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeBadRequest, msg.Code)

	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, []byte{0x00}))
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeBadRequest, msg.Code)
}

func TestGameServer_RoomFull(t *testing.T) {
	env := newTestEnv(t, network.JSONCodec{})
	a, b, c := env.dial(t), env.dial(t), env.dial(t)

	a.send(network.MsgTypeCreateRoom, network.CreateRoomRequest{})
	var created network.RoomCreated
	a.expect(network.MsgTypeRoomCreated, &created)

	b.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: created.RoomID})
	b.expect(network.MsgTypeGameStart, nil)

	c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: created.RoomID})
	var msg network.ErrorMessage
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeRoomFull, msg.Code)
}

func TestGameServer_HTTP(t *testing.T) {
	env := newTestEnv(t, network.JSONCodec{})

	var health map[string]any
	require.Equal(t, http.StatusOK, env.getJSON(t, "/healthz", &health))
	assert.Equal(t, "ok", health["status"])

	created, err := env.rooms.Create("p1", "Ada")
	require.NoError(t, err)

	var snap room.Snapshot
	require.Equal(t, http.StatusOK, env.getJSON(t, "/rooms/"+created.ID, &snap))
	assert.Equal(t, "waiting", snap.Status)
	assert.Equal(t, created.ID, snap.ID)

	var msg network.ErrorMessage
	assert.Equal(t, http.StatusNotFound, env.getJSON(t, "/rooms/NOPE22", &msg))
	assert.Equal(t, network.ErrCodeRoomNotFound, msg.Code)

	resp, err := http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGameServer_Shutdown(t *testing.T) {
	env := newTestEnv(t, network.JSONCodec{})
	c := env.dial(t)

	c.send(network.MsgTypeHeartbeat, nil)
	require.Eventually(t, func() bool { return env.server.sessionManager.Count() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, env.server.Shutdown(ctx))

	var msg network.ErrorMessage
	c.expect(network.MsgTypeError, &msg)
	assert.Equal(t, network.ErrCodeShutdown, msg.Code)

	_, _, err := c.conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return env.server.sessionManager.Count() == 0 }, time.Second, 5*time.Millisecond)
}
