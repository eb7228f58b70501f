package network

// CreateRoomRequest 创建房间
type CreateRoomRequest struct {
	Name string `json:"name,omitempty"`
}

// JoinRoomRequest 加入房间
type JoinRoomRequest struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name,omitempty"`
}

// SubmitRequest carries an answer for the current phase. Phase may be
// empty to mean "whatever is running". Answer is used by the arithmetic
// phase, First and Second by the reaction and shield phases.
type SubmitRequest struct {
	Phase  string `json:"phase,omitempty"`
	Answer string `json:"answer,omitempty"`
	First  string `json:"first,omitempty"`
	Second string `json:"second,omitempty"`
}

// PlayerView is the public part of a player's state.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	HP     int    `json:"hp"`
	Shield int    `json:"shield"`
	Energy int    `json:"energy"`
	Combo  int    `json:"combo"`
}

type RoomCreated struct {
	RoomID string `json:"room_id"`
	YourID string `json:"your_id"`
}

type Welcome struct {
	RoomID string `json:"room_id"`
	YourID string `json:"your_id"`
}

type GameStart struct {
	RoomID  string       `json:"room_id"`
	Round   int          `json:"round"`
	Players []PlayerView `json:"players"`
}

type PhaseStart struct {
	Phase     string   `json:"phase"`
	Round     int      `json:"round"`
	TimeLeft  int      `json:"time_left"`
	Question  string   `json:"question,omitempty"`
	Chemicals []string `json:"chemicals,omitempty"`
	Blocks    []string `json:"blocks,omitempty"`
}

type Tick struct {
	Phase    string `json:"phase"`
	TimeLeft int    `json:"time_left"`
}

type SubmissionResult struct {
	PlayerID     string       `json:"player_id"`
	Phase        string       `json:"phase"`
	Success      bool         `json:"success"`
	Damage       int          `json:"damage"`
	Absorbed     int          `json:"absorbed"`
	SelfDamage   int          `json:"self_damage"`
	ShieldGained int          `json:"shield_gained"`
	Combo        int          `json:"combo"`
	Detail       string       `json:"detail,omitempty"`
	Players      []PlayerView `json:"players"`
}

type PhaseEnd struct {
	Round     int          `json:"round"`
	NextPhase string       `json:"next_phase"`
	Players   []PlayerView `json:"players"`
}

type GameOver struct {
	Winner   string       `json:"winner"`
	WinnerID string       `json:"winner_id,omitempty"`
	Draw     bool         `json:"draw"`
	Reason   string       `json:"reason"`
	Players  []PlayerView `json:"players"`
}

type RematchWaiting struct {
	Votes int `json:"votes"`
}

type RematchStart struct {
	RoomID  string       `json:"room_id"`
	Players []PlayerView `json:"players"`
}

type PeerLeft struct {
	PlayerID string `json:"player_id"`
}

// RoomClosed 房间被服务器关闭（结算超时、停服）
type RoomClosed struct {
	RoomID string `json:"room_id"`
	Reason string `json:"reason"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
