package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/network"
)

func packetOf(t *testing.T, codec network.Codec, msgID uint16, v any) *network.Packet {
	t.Helper()
	body, err := codec.Marshal(v)
	require.NoError(t, err)
	return &network.Packet{MsgID: msgID, Data: body, Length: uint16(len(body))}
}

func TestPlayClient_RenderTracksPhase(t *testing.T) {
	var out bytes.Buffer
	codec := network.JSONCodec{}
	c := &playClient{codec: codec, out: &out}

	require.NoError(t, c.render(packetOf(t, codec, network.MsgTypePhaseStart, network.PhaseStart{
		Phase: "bodmas", Round: 1, TimeLeft: 15, Question: "3 + 4 × 2",
	})))
	assert.Equal(t, "bodmas", c.currentPhase())
	assert.Contains(t, out.String(), "3 + 4 × 2 = ?")

	require.NoError(t, c.render(packetOf(t, codec, network.MsgTypePhaseEnd, network.PhaseEnd{Round: 1, NextPhase: "chemical"})))
	assert.Empty(t, c.currentPhase())

	require.NoError(t, c.render(packetOf(t, codec, network.MsgTypeGameOver, network.GameOver{Winner: "Ada", Reason: "knockout"})))
	assert.Contains(t, out.String(), "Ada wins")
}

func TestPlayClient_RenderBadBody(t *testing.T) {
	c := &playClient{codec: network.JSONCodec{}, out: &bytes.Buffer{}}
	err := c.render(&network.Packet{MsgID: network.MsgTypeError, Data: []byte("{")})
	assert.Error(t, err)
}

func TestFormatPlayers(t *testing.T) {
	got := formatPlayers([]network.PlayerView{
		{Name: "Ada", HP: 90, Shield: 5},
		{Name: "Bob", HP: 100},
	})
	assert.Equal(t, "Ada hp 90 shield 5 vs Bob hp 100 shield 0", got)
}
