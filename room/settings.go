package room

import (
	"time"

	"github.com/wfunc/stemarena/combat"
	"github.com/wfunc/stemarena/models"
)

// Budgets 每个阶段的倒计时秒数
type Budgets struct {
	Arithmetic int
	Reaction   int
	Shield     int
}

// Settings are copied into a room when it is created; later changes only
// affect new rooms.
type Settings struct {
	MaxRounds         int
	GraceDelay        time.Duration
	CooldownDelay     time.Duration
	TickInterval      time.Duration
	SettlementTimeout time.Duration // zero keeps finished rooms until a player leaves
	Budgets           Budgets
	Tuning            combat.Tuning
}

func DefaultSettings() Settings {
	return Settings{
		MaxRounds:         3,
		GraceDelay:        2 * time.Second,
		CooldownDelay:     2500 * time.Millisecond,
		TickInterval:      time.Second,
		SettlementTimeout: time.Minute,
		Budgets:           Budgets{Arithmetic: 15, Reaction: 20, Shield: 20},
		Tuning:            combat.DefaultTuning(),
	}
}

// Budget returns the countdown length of phase in ticks.
func (s Settings) Budget(phase models.Phase) int {
	switch phase {
	case models.PhaseArithmetic:
		return s.Budgets.Arithmetic
	case models.PhaseReaction:
		return s.Budgets.Reaction
	case models.PhaseShield:
		return s.Budgets.Shield
	default:
		return 0
	}
}
