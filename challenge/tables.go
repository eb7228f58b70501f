package challenge

import (
	"sort"

	"github.com/wfunc/stemarena/models"
)

// Chemicals offered in the reaction phase.
var Chemicals = []string{"H₂", "O₂", "HCl", "NaOH", "C", "Na", "Cl₂", "Fe", "H₂SO₄", "CaCO₃"}

// Blocks offered in the shield phase.
var Blocks = []string{"acid", "base", "energy", "neutral", "shield"}

// Reactions 所有可用的化学反应
var Reactions = models.ReactionTable{
	models.MakePair("H₂", "O₂"): {
		Product: "2H₂O", Display: "2H₂ + O₂ → 2H₂O",
		Damage: 20, Bonus: 10, Kind: "synthesis", Exothermic: true,
	},
	models.MakePair("HCl", "NaOH"): {
		Product: "NaCl + H₂O", Display: "HCl + NaOH → NaCl + H₂O",
		Damage: 20, Bonus: 10, Kind: "acid-base", Exothermic: true,
	},
	models.MakePair("C", "O₂"): {
		Product: "CO₂", Display: "C + O₂ → CO₂",
		Damage: 20, Kind: "combustion", Exothermic: true,
	},
	models.MakePair("Na", "Cl₂"): {
		Product: "NaCl", Display: "2Na + Cl₂ → 2NaCl",
		Damage: 20, Bonus: 5, Kind: "synthesis", Exothermic: true,
	},
	models.MakePair("Fe", "O₂"): {
		Product: "Fe₂O₃", Display: "4Fe + 3O₂ → 2Fe₂O₃",
		Damage: 20, Kind: "oxidation",
	},
	models.MakePair("H₂SO₄", "NaOH"): {
		Product: "Na₂SO₄ + H₂O", Display: "H₂SO₄ + 2NaOH → Na₂SO₄ + 2H₂O",
		Damage: 20, Bonus: 10, Kind: "acid-base", Exothermic: true,
	},
	models.MakePair("CaCO₃", "HCl"): {
		Product: "CaCl₂ + CO₂", Display: "CaCO₃ + 2HCl → CaCl₂ + H₂O + CO₂",
		Damage: 20, Bonus: 5, Kind: "decomposition",
	},
}

// Shields 所有可用的护盾组合
var Shields = models.ShieldTable{
	models.MakePair("acid", "base"):       {Name: "Neutral Shield", Shield: 30},
	models.MakePair("energy", "shield"):   {Name: "Power Shield", Shield: 40},
	models.MakePair("neutral", "neutral"): {Name: "Double Guard", Shield: 20},
	models.MakePair("acid", "acid"):       {Name: "Acid Wall", Shield: 10, SelfDamage: 5},
	models.MakePair("base", "base"):       {Name: "Base Wall", Shield: 10},
	models.MakePair("energy", "acid"):     {Name: "Energy Acid", Shield: 25},
	models.MakePair("energy", "base"):     {Name: "Energy Base", Shield: 25},
	models.MakePair("neutral", "shield"):  {Name: "Neutral Guard", Shield: 15},
}

// reactionPairs is Reactions' key set in a stable order so a seeded
// generator is reproducible.
var reactionPairs = func() []models.Pair {
	pairs := make([]models.Pair, 0, len(Reactions))
	for p := range Reactions {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].String() < pairs[j].String() })
	return pairs
}()
