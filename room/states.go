package room

import (
	"sort"

	"github.com/wfunc/stemarena/challenge"
	"github.com/wfunc/stemarena/combat"
	"github.com/wfunc/stemarena/logger"
	"github.com/wfunc/stemarena/models"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/state"
)

const (
	stateWaiting    = "waiting"
	statePlaying    = "playing"
	stateSettlement = "settlement"
)

type rematchVote struct{}

// 等待状态：房间里只有创建者
type waitingState struct {
	state.Base
	room *Room
}

func (s *waitingState) status() RoomStatus { return StatusWaiting }

func (s *waitingState) fill(*Snapshot) {}

// 游戏进行状态：驱动 宽限 -> 阶段 -> 冷却 -> 阶段 ... 的循环
type playingState struct {
	state.Base
	room    *Room
	rematch bool

	round     int
	phase     models.Phase
	running   bool
	remaining int
	answered  map[string]bool
	challenge challenge.Challenge
}

func newPlayingState(r *Room, rematch bool) *playingState {
	return &playingState{
		Base:     state.Base{ID: statePlaying},
		room:     r,
		rematch:  rematch,
		round:    1,
		phase:    models.PhaseArithmetic,
		answered: make(map[string]bool),
	}
}

func (s *playingState) status() RoomStatus { return StatusGaming }

func (s *playingState) fill(snap *Snapshot) {
	snap.Phase = s.phase.String()
	snap.Round = s.round
	snap.Running = s.running
	if s.running {
		snap.TimeLeft = s.remaining
	}
	for id := range s.answered {
		snap.Answered = append(snap.Answered, id)
	}
	sort.Strings(snap.Answered)
}

func (s *playingState) OnEnter() {
	r := s.room
	if s.rematch {
		for _, p := range r.players {
			p.state.Reset()
		}
		r.broadcast(network.MsgTypeRematchStart, network.RematchStart{RoomID: r.ID, Players: r.views()})
	} else {
		r.broadcast(network.MsgTypeGameStart, network.GameStart{RoomID: r.ID, Round: s.round, Players: r.views()})
		for _, p := range r.players {
			r.sendTo(p.id, network.MsgTypeWelcome, network.Welcome{RoomID: r.ID, YourID: p.id})
		}
	}
	r.clock.arm(r.settings.GraceDelay, 0, func() { s.startPhase(models.PhaseArithmetic) })
}

func (s *playingState) OnExit() {
	s.running = false
	s.room.clock.stop()
}

func (s *playingState) HandleAction(p state.Player, action any) error {
	sub, ok := action.(Submission)
	if !ok {
		return nil
	}
	s.submit(p.GetID(), sub)
	return nil
}

// startPhase opens phase: fresh challenge, full budget, a tick every
// TickInterval.
func (s *playingState) startPhase(phase models.Phase) {
	r := s.room
	r.clock.stop()
	if len(r.players) < MaxPlayers {
		return
	}

	s.phase = phase
	s.answered = make(map[string]bool)
	s.challenge = r.provider.GetChallenge(phase)
	s.remaining = r.settings.Budget(phase)
	s.running = true

	r.observer.PhaseStarted(phase)
	r.broadcast(network.MsgTypePhaseStart, network.PhaseStart{
		Phase:     phase.String(),
		Round:     s.round,
		TimeLeft:  s.remaining,
		Question:  s.challenge.Question,
		Chemicals: s.challenge.Chemicals,
		Blocks:    s.challenge.Blocks,
	})
	r.clock.arm(r.settings.TickInterval, r.settings.TickInterval, s.tick)
}

func (s *playingState) tick() {
	if !s.running {
		return
	}
	s.remaining--
	s.room.broadcast(network.MsgTypeTick, network.Tick{Phase: s.phase.String(), TimeLeft: max(0, s.remaining)})
	if s.remaining <= 0 {
		s.advance()
	}
}

// advance closes the running phase and schedules the next one after the
// cooldown, or ends the game when the rounds run out or someone is down.
func (s *playingState) advance() {
	r := s.room
	r.clock.stop()
	s.running = false

	next, wrapped := s.phase.Next()
	if wrapped {
		s.round++
		if s.round > r.settings.MaxRounds {
			s.finish(ReasonRounds)
			return
		}
	}
	s.phase = next
	s.answered = make(map[string]bool)

	if r.anyDown() {
		s.finish(ReasonKnockout)
		return
	}

	r.broadcast(network.MsgTypePhaseEnd, network.PhaseEnd{Round: s.round, NextPhase: next.String(), Players: r.views()})
	r.clock.arm(r.settings.CooldownDelay, 0, func() { s.startPhase(next) })
}

func (s *playingState) submit(playerID string, sub Submission) {
	if !s.running {
		return
	}
	if sub.Phase != models.PhaseUnknown && sub.Phase != s.phase {
		return
	}
	if s.answered[playerID] {
		return
	}

	r := s.room
	self, opp := r.player(playerID), r.opponent(playerID)
	if self == nil || opp == nil {
		return
	}
	s.answered[playerID] = true

	var (
		res    combat.Result
		detail string
	)
	switch s.phase {
	case models.PhaseArithmetic:
		res = combat.ResolveArithmetic(self.state, opp.state, sub.Answer, s.challenge.Answer, r.settings.Tuning)
	case models.PhaseReaction:
		res = combat.ResolveReaction(self.state, opp.state, sub.Pair, s.challenge.Reactions, r.settings.Tuning)
		if res.Reaction != nil {
			detail = res.Reaction.Display
		}
	case models.PhaseShield:
		res = combat.ResolveShield(self.state, opp.state, sub.Pair, s.challenge.Shields)
		if res.ShieldCombo != nil {
			detail = res.ShieldCombo.Name
		}
	default:
		logger.Log.Errorw("submission in unknown phase", "room", r.ID, "phase", s.phase)
		return
	}
	self.state, opp.state = res.Self, res.Opponent

	r.observer.SubmissionResolved(s.phase, res.Success)
	r.broadcast(network.MsgTypeSubmissionResult, network.SubmissionResult{
		PlayerID:     playerID,
		Phase:        s.phase.String(),
		Success:      res.Success,
		Damage:       res.Damage,
		Absorbed:     res.Absorbed,
		SelfDamage:   res.SelfDamage,
		ShieldGained: res.ShieldGained,
		Combo:        res.Self.Combo,
		Detail:       detail,
		Players:      r.views(),
	})

	if r.anyDown() {
		s.finish(ReasonKnockout)
		return
	}
	// 算术阶段只有答对才提前结束，答错的等倒计时
	if s.phase == models.PhaseArithmetic {
		if res.Success {
			s.advance()
		}
		return
	}
	if len(s.answered) >= len(r.players) {
		s.advance()
	}
}

// finish 结束本局并进入结算
func (s *playingState) finish(reason string) {
	r := s.room
	r.clock.stop()
	s.running = false

	over := r.outcome(reason)
	r.observer.GameFinished(reason)
	r.broadcast(network.MsgTypeGameOver, over)
	logger.Log.Infow("game over", "room", r.ID, "reason", reason, "winner", over.Winner)

	if err := r.machine.ChangeState(newSettlementState(r, over)); err != nil {
		logger.Log.Errorw("enter settlement failed", "room", r.ID, "error", err)
	}
}

// outcome compares hp; equal hp is a draw.
func (r *Room) outcome(reason string) network.GameOver {
	over := network.GameOver{Reason: reason, Players: r.views(), Winner: "Draw", Draw: true}
	if len(r.players) < MaxPlayers {
		return over
	}
	a, b := r.players[0], r.players[1]
	var winner *player
	switch {
	case a.state.HP > b.state.HP:
		winner = a
	case b.state.HP > a.state.HP:
		winner = b
	}
	if winner != nil {
		over.Winner = winner.state.Name
		over.WinnerID = winner.id
		over.Draw = false
	}
	return over
}

// 结算状态：等待双方投票重开，超时后关闭房间
type settlementState struct {
	state.Base
	room   *Room
	result network.GameOver
	votes  map[string]bool
}

func newSettlementState(r *Room, result network.GameOver) *settlementState {
	return &settlementState{
		Base:   state.Base{ID: stateSettlement},
		room:   r,
		result: result,
		votes:  make(map[string]bool),
	}
}

func (s *settlementState) status() RoomStatus { return StatusSettlement }

func (s *settlementState) fill(snap *Snapshot) {
	snap.RematchVotes = len(s.votes)
	snap.Winner = s.result.Winner
}

func (s *settlementState) OnEnter() {
	r := s.room
	if r.settings.SettlementTimeout > 0 {
		r.clock.arm(r.settings.SettlementTimeout, 0, func() { r.evict(ReasonSettlementTimeout) })
	}
}

func (s *settlementState) OnExit() {
	s.room.clock.stop()
}

func (s *settlementState) HandleAction(p state.Player, action any) error {
	if _, ok := action.(rematchVote); !ok {
		return nil
	}
	if s.votes[p.GetID()] {
		return nil
	}
	s.votes[p.GetID()] = true

	r := s.room
	if len(s.votes) < len(r.players) {
		r.broadcast(network.MsgTypeRematchWaiting, network.RematchWaiting{Votes: len(s.votes)})
		return nil
	}
	logger.Log.Infow("rematch", "room", r.ID)
	return r.machine.ChangeState(newPlayingState(r, true))
}
