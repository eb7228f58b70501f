// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/session"
)

var (
	ErrPlayerNotFound = errors.New("player not connected")
)

// 广播接口
type Broadcaster interface {
	SendToPlayer(playerID string, msgID uint16, v any) error
	BroadcastToPlayers(playerIDs []string, msgID uint16, v any) error
	BroadcastToAll(msgID uint16, v any) error
}

// 基于 session 的广播器，消息体只编码一次
type SessionBroadcaster struct {
	sessionManager *session.Manager
	codec          network.Codec
}

func NewSessionBroadcaster(sessionManager *session.Manager, codec network.Codec) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
		codec:          codec,
	}
}

func (b *SessionBroadcaster) encode(msgID uint16, v any) ([]byte, error) {
	data, err := b.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", network.MsgName(msgID), err)
	}
	return data, nil
}

func (b *SessionBroadcaster) SendToPlayer(playerID string, msgID uint16, v any) error {
	s, ok := b.sessionManager.Get(playerID)
	if !ok {
		return ErrPlayerNotFound
	}
	data, err := b.encode(msgID, v)
	if err != nil {
		return err
	}
	return s.Send(msgID, data)
}

// BroadcastToPlayers delivers to every connected player in playerIDs.
// Missing players and send failures are logged and skipped.
func (b *SessionBroadcaster) BroadcastToPlayers(playerIDs []string, msgID uint16, v any) error {
	data, err := b.encode(msgID, v)
	if err != nil {
		return err
	}

	for _, id := range playerIDs {
		s, ok := b.sessionManager.Get(id)
		if !ok {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			// 处理发送错误，连接断开后由读循环清理
			logger.Log.Debugw("send failed", "player", id, "msg", network.MsgName(msgID), "error", err)
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, v any) error {
	data, err := b.encode(msgID, v)
	if err != nil {
		return err
	}
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}
