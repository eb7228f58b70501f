// Package combat turns a submitted answer into changes of player state.
// The resolvers take states by value and return the updated copies; they
// never touch shared data.
package combat

import (
	"strconv"
	"strings"

	"github.com/wfunc/stemarena/models"
)

// Tuning holds the numbers the resolvers work with.
type Tuning struct {
	BaseDamage      int `json:"base_damage"`
	ComboThreshold  int `json:"combo_threshold"`
	ComboBonus      int `json:"combo_bonus"`
	CorrectEnergy   int `json:"correct_energy"`
	WrongPenalty    int `json:"wrong_penalty"`
	ReactionEnergy  int `json:"reaction_energy"`
	ReactionPenalty int `json:"reaction_penalty"`
}

// DefaultTuning returns the standard balance values.
func DefaultTuning() Tuning {
	return Tuning{
		BaseDamage:      10,
		ComboThreshold:  3,
		ComboBonus:      5,
		CorrectEnergy:   10,
		WrongPenalty:    5,
		ReactionEnergy:  5,
		ReactionPenalty: 10,
	}
}

// ArithmeticDamage is the raw damage of a correct answer given the combo
// counter after it was incremented.
func (t Tuning) ArithmeticDamage(combo int) int {
	dmg := t.BaseDamage
	if t.ComboThreshold > 0 && combo >= t.ComboThreshold {
		dmg += t.ComboBonus
	}
	return dmg
}

// Result describes what one submission did.
type Result struct {
	Self     models.PlayerState
	Opponent models.PlayerState

	Success      bool
	Damage       int // hp the opponent lost
	Absorbed     int // damage the opponent's shield soaked up
	SelfDamage   int
	ShieldGained int
	EnergyGained int

	Reaction    *models.Reaction
	ShieldCombo *models.ShieldCombo
}

// ApplyDamage routes raw damage through the target's shield first and
// returns the hp loss. Non-positive damage is a no-op.
func ApplyDamage(target *models.PlayerState, raw int) int {
	loss, _ := strike(target, raw)
	return loss
}

func strike(target *models.PlayerState, raw int) (loss, absorbed int) {
	if raw <= 0 {
		return 0, 0
	}
	absorbed = min(target.Shield, raw)
	target.Shield -= absorbed
	loss = raw - absorbed
	target.HP = max(0, target.HP-loss)
	return loss, absorbed
}

// hurt takes hp directly, bypassing the shield.
func hurt(target *models.PlayerState, amount int) int {
	if amount <= 0 {
		return 0
	}
	target.HP = max(0, target.HP-amount)
	return amount
}

// ParseAnswer reads an integer answer. Anything that is not an integer
// is reported as !ok and must be graded as wrong.
func ParseAnswer(answer string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return 0, false
	}
	return n, true
}

// ResolveArithmetic grades an arithmetic answer against the expected value.
func ResolveArithmetic(self, opponent models.PlayerState, answer string, expected int, t Tuning) Result {
	res := Result{Self: self, Opponent: opponent}

	got, ok := ParseAnswer(answer)
	if !ok || got != expected {
		res.Self.Combo = 0
		res.SelfDamage = hurt(&res.Self, t.WrongPenalty)
		return res
	}

	res.Success = true
	res.Self.Combo++
	res.Self.Energy += t.CorrectEnergy
	res.EnergyGained = t.CorrectEnergy
	res.Damage, res.Absorbed = strike(&res.Opponent, t.ArithmeticDamage(res.Self.Combo))
	return res
}

// ResolveReaction looks the reagent pair up in table. A match hits the
// opponent, a miss costs the submitter hp directly.
func ResolveReaction(self, opponent models.PlayerState, pair models.Pair, table models.ReactionTable, t Tuning) Result {
	res := Result{Self: self, Opponent: opponent}

	reaction, ok := table.Lookup(pair[0], pair[1])
	if !ok {
		res.SelfDamage = hurt(&res.Self, t.ReactionPenalty)
		return res
	}

	res.Success = true
	res.Reaction = &reaction
	res.Self.Energy += t.ReactionEnergy
	res.EnergyGained = t.ReactionEnergy
	res.Damage, res.Absorbed = strike(&res.Opponent, reaction.Total())
	return res
}

// ResolveShield looks the block pair up in table. A match raises the
// submitter's shield and may cost some hp; a miss changes nothing.
func ResolveShield(self, opponent models.PlayerState, pair models.Pair, table models.ShieldTable) Result {
	res := Result{Self: self, Opponent: opponent}

	combo, ok := table.Lookup(pair[0], pair[1])
	if !ok {
		return res
	}

	res.Success = true
	res.ShieldCombo = &combo
	res.Self.Shield += combo.Shield
	res.ShieldGained = combo.Shield
	res.SelfDamage = hurt(&res.Self, combo.SelfDamage)
	return res
}
