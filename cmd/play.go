package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/wfunc/stemarena/network"
)

var playOpts struct {
	url   string
	name  string
	join  string
	codec string
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Interactive terminal client",
	Long: `play connects to a running server, creates a room (or joins one with
--join) and reads answers from stdin:

  <number>        answer the arithmetic question
  <a> <b>         pick two chemicals or two blocks
  rematch         vote for a rematch after the game
  leave           leave the room
  quit            exit`,
	RunE: runPlay,
}

func init() {
	f := playCmd.Flags()
	f.StringVar(&playOpts.url, "url", "ws://localhost:8080/ws", "server websocket url")
	f.StringVar(&playOpts.name, "name", "", "display name")
	f.StringVar(&playOpts.join, "join", "", "room code to join instead of creating a room")
	f.StringVar(&playOpts.codec, "codec", "json", "packet body codec, must match the server")
}

// playClient 终端客户端，读协程记录当前阶段，写协程读 stdin
type playClient struct {
	conn  *websocket.Conn
	codec network.Codec
	out   io.Writer

	mu      sync.Mutex
	writeMu sync.Mutex
	phase   string
}

func runPlay(cmd *cobra.Command, _ []string) error {
	codec, err := network.CodecByName(playOpts.codec)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), playOpts.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", playOpts.url, err)
	}
	defer conn.Close()

	c := &playClient{conn: conn, codec: codec, out: cmd.OutOrStdout()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.readLoop()
	}()

	if playOpts.join != "" {
		err = c.send(network.MsgTypeJoinRoom, network.JoinRoomRequest{RoomID: playOpts.join, Name: playOpts.name})
	} else {
		err = c.send(network.MsgTypeCreateRoom, network.CreateRoomRequest{Name: playOpts.name})
	}
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return nil
		case <-interrupt:
			return c.close()
		case line, ok := <-lines:
			if !ok {
				return c.close()
			}
			quit, err := c.handleLine(line)
			if err != nil {
				return err
			}
			if quit {
				return c.close()
			}
		}
	}
}

func (c *playClient) send(msgID uint16, v any) error {
	var body []byte
	if v != nil {
		var err error
		if body, err = c.codec.Marshal(v); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, body)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *playClient) close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *playClient) currentPhase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *playClient) setPhase(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
}

func (c *playClient) handleLine(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 0:
		return false, nil
	case fields[0] == "quit":
		return true, nil
	case fields[0] == "rematch":
		return false, c.send(network.MsgTypeRematch, nil)
	case fields[0] == "leave":
		return false, c.send(network.MsgTypeLeaveRoom, nil)
	case len(fields) == 1:
		return false, c.send(network.MsgTypeSubmit, network.SubmitRequest{Phase: c.currentPhase(), Answer: fields[0]})
	default:
		return false, c.send(network.MsgTypeSubmit, network.SubmitRequest{Phase: c.currentPhase(), First: fields[0], Second: fields[1]})
	}
}

func (c *playClient) readLoop() {
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			fmt.Fprintln(c.out, "connection closed:", err)
			return
		}
		packet, err := network.DecodePacket(message)
		if err != nil {
			fmt.Fprintf(c.out, "invalid packet of %d bytes\n", len(message))
			continue
		}
		if err := c.render(packet); err != nil {
			fmt.Fprintf(c.out, "<- %s: %v\n", network.MsgName(packet.MsgID), err)
		}
	}
}

func (c *playClient) render(p *network.Packet) error {
	switch p.MsgID {
	case network.MsgTypeRoomCreated:
		var m network.RoomCreated
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "room %s created, waiting for an opponent\n", m.RoomID)
	case network.MsgTypeGameStart:
		var m network.GameStart
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "match in room %s starts: %s\n", m.RoomID, formatPlayers(m.Players))
	case network.MsgTypePhaseStart:
		var m network.PhaseStart
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		c.setPhase(m.Phase)
		fmt.Fprintf(c.out, "\nround %d, %s (%ds)\n", m.Round, m.Phase, m.TimeLeft)
		switch {
		case m.Question != "":
			fmt.Fprintf(c.out, "  %s = ?\n", m.Question)
		case len(m.Chemicals) > 0:
			fmt.Fprintf(c.out, "  chemicals: %s\n", strings.Join(m.Chemicals, " "))
		case len(m.Blocks) > 0:
			fmt.Fprintf(c.out, "  blocks: %s\n", strings.Join(m.Blocks, " "))
		}
	case network.MsgTypeTick:
		var m network.Tick
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		if m.TimeLeft <= 5 {
			fmt.Fprintf(c.out, "  %ds left\n", m.TimeLeft)
		}
	case network.MsgTypeSubmissionResult:
		var m network.SubmissionResult
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		outcome := "miss"
		if m.Success {
			outcome = "hit"
		}
		fmt.Fprintf(c.out, "  %s %s %s | %s\n", m.PlayerID[:min(8, len(m.PlayerID))], outcome, m.Detail, formatPlayers(m.Players))
	case network.MsgTypePhaseEnd:
		var m network.PhaseEnd
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		c.setPhase("")
		fmt.Fprintf(c.out, "phase over, next %s | %s\n", m.NextPhase, formatPlayers(m.Players))
	case network.MsgTypeGameOver:
		var m network.GameOver
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		c.setPhase("")
		if m.Draw {
			fmt.Fprintf(c.out, "\ngame over (%s): draw\n", m.Reason)
		} else {
			fmt.Fprintf(c.out, "\ngame over (%s): %s wins\n", m.Reason, m.Winner)
		}
		fmt.Fprintln(c.out, "type rematch to play again")
	case network.MsgTypeRematchWaiting:
		fmt.Fprintln(c.out, "rematch requested, waiting for the other player")
	case network.MsgTypePeerLeft:
		fmt.Fprintln(c.out, "opponent left the room")
	case network.MsgTypeRoomClosed:
		var m network.RoomClosed
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		c.setPhase("")
		fmt.Fprintf(c.out, "room %s closed (%s)\n", m.RoomID, m.Reason)
	case network.MsgTypeError:
		var m network.ErrorMessage
		if err := c.codec.Unmarshal(p.Data, &m); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "error %s: %s\n", m.Code, m.Message)
	default:
		fmt.Fprintf(c.out, "<- %s\n", network.MsgName(p.MsgID))
	}
	return nil
}

func formatPlayers(players []network.PlayerView) string {
	parts := make([]string, len(players))
	for i, p := range players {
		parts[i] = fmt.Sprintf("%s hp %d shield %d", p.Name, p.HP, p.Shield)
	}
	return strings.Join(parts, " vs ")
}
