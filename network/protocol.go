package network

// 客户端 -> 服务器
const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinRoom   = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeCreateRoom = 103
	MsgTypeSubmit     = 201
	MsgTypeRematch    = 202
)

// 服务器 -> 客户端
const (
	MsgTypeRoomCreated      = 301
	MsgTypeWelcome          = 302
	MsgTypeGameStart        = 303
	MsgTypeTick             = 304
	MsgTypeGameOver         = 305
	MsgTypePhaseStart       = 306
	MsgTypeSubmissionResult = 307
	MsgTypePhaseEnd         = 308
	MsgTypeRematchWaiting   = 309
	MsgTypeRematchStart     = 310
	MsgTypePeerLeft         = 311
	MsgTypeRoomClosed       = 312
	MsgTypeError            = 399
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:        "heartbeat",
	MsgTypeJoinRoom:         "join_room",
	MsgTypeLeaveRoom:        "leave_room",
	MsgTypeCreateRoom:       "create_room",
	MsgTypeSubmit:           "submit",
	MsgTypeRematch:          "rematch",
	MsgTypeRoomCreated:      "room_created",
	MsgTypeWelcome:          "welcome",
	MsgTypeGameStart:        "game_start",
	MsgTypeTick:             "tick",
	MsgTypeGameOver:         "game_over",
	MsgTypePhaseStart:       "phase_start",
	MsgTypeSubmissionResult: "submission_result",
	MsgTypePhaseEnd:         "phase_end",
	MsgTypeRematchWaiting:   "rematch_waiting",
	MsgTypeRematchStart:     "rematch_start",
	MsgTypePeerLeft:         "peer_left",
	MsgTypeRoomClosed:       "room_closed",
	MsgTypeError:            "error",
}

// MsgName returns a stable label for msgID, "unknown" if it is not defined.
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}

// Error codes carried by ErrorMessage.
const (
	ErrCodeRoomNotFound = "session_not_found"
	ErrCodeRoomFull     = "session_full"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotInRoom    = "not_in_session"
	ErrCodeInternal     = "internal"
	ErrCodeShutdown     = "shutdown"
)
