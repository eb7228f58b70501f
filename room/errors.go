package room

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyJoined = errors.New("player already in room")
	ErrRoomClosed    = errors.New("room closed")
	ErrIDCollision   = errors.New("could not allocate a free room id")
)

// 房间结束 / 关闭原因
const (
	ReasonKnockout          = "knockout"
	ReasonRounds            = "rounds"
	ReasonPeerLeft          = "peer_left"
	ReasonSettlementTimeout = "settlement_timeout"
	ReasonShutdown          = "shutdown"
)
