package models

import "strings"

// Pair is an unordered pair of choices. MakePair normalizes the order so
// that a pair can be used directly as a map key.
type Pair [2]string

// MakePair builds a normalized pair from two choices in any order.
func MakePair(a, b string) Pair {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if b < a {
		a, b = b, a
	}
	return Pair{a, b}
}

func (p Pair) String() string {
	return p[0] + "+" + p[1]
}

// Reaction 化学反应表中的一项
type Reaction struct {
	Product    string `json:"product"`
	Display    string `json:"display"`
	Kind       string `json:"kind"`
	Damage     int    `json:"damage"`
	Bonus      int    `json:"bonus"`
	Exothermic bool   `json:"exothermic"`
}

// Total is the raw damage a successful reaction deals.
func (r Reaction) Total() int {
	return r.Damage + r.Bonus
}

// ReactionTable maps a reagent pair to its reaction.
type ReactionTable map[Pair]Reaction

// Lookup finds the reaction for two reagents regardless of their order.
func (t ReactionTable) Lookup(a, b string) (Reaction, bool) {
	r, ok := t[MakePair(a, b)]
	return r, ok
}

// ShieldCombo 护盾组合表中的一项
type ShieldCombo struct {
	Name       string `json:"name"`
	Shield     int    `json:"shield"`
	SelfDamage int    `json:"self_damage,omitempty"`
}

// ShieldTable maps a block pair to the shield it builds.
type ShieldTable map[Pair]ShieldCombo

// Lookup finds the combo for two blocks regardless of their order.
func (t ShieldTable) Lookup(a, b string) (ShieldCombo, bool) {
	c, ok := t[MakePair(a, b)]
	return c, ok
}
