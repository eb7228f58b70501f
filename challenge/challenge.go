// challenge/challenge.go
package challenge

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/wfunc/stemarena/models"
)

// decoyCount 化学阶段除正确组合外额外给出的干扰项数量
const decoyCount = 4

// Challenge is what a phase presents to both players, plus what the
// resolver needs to grade submissions. Only Question, Chemicals and Blocks
// are shown to clients.
type Challenge struct {
	Phase     models.Phase
	Question  string
	Answer    int
	Chemicals []string
	Blocks    []string
	Reactions models.ReactionTable
	Shields   models.ShieldTable
}

// Provider hands out a challenge for the given phase.
type Provider interface {
	GetChallenge(phase models.Phase) Challenge
}

// Generator is the default Provider. It is safe for concurrent use.
type Generator struct {
	mutex sync.Mutex
	rnd   *rand.Rand
}

// NewGenerator creates a generator. A zero seed uses the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// GetChallenge implements Provider. Unknown phases get an empty challenge.
func (g *Generator) GetChallenge(phase models.Phase) Challenge {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	switch phase {
	case models.PhaseArithmetic:
		question, answer := g.expression()
		return Challenge{Phase: phase, Question: question, Answer: answer}
	case models.PhaseReaction:
		chems := g.chemicals()
		return Challenge{Phase: phase, Chemicals: chems, Reactions: reactionsAmong(chems)}
	case models.PhaseShield:
		return Challenge{Phase: phase, Blocks: slices.Clone(Blocks), Shields: Shields}
	default:
		return Challenge{Phase: phase}
	}
}

// chemicals picks one reacting pair and pads it with decoys, shuffled.
func (g *Generator) chemicals() []string {
	pair := reactionPairs[g.rnd.Intn(len(reactionPairs))]

	var others []string
	for _, c := range Chemicals {
		if c != pair[0] && c != pair[1] {
			others = append(others, c)
		}
	}
	g.rnd.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })

	out := append([]string{pair[0], pair[1]}, others[:min(decoyCount, len(others))]...)
	g.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// reactionsAmong limits the table to reactions whose reagents were both
// offered.
func reactionsAmong(chems []string) models.ReactionTable {
	table := make(models.ReactionTable)
	for p, r := range Reactions {
		if slices.Contains(chems, p[0]) && slices.Contains(chems, p[1]) {
			table[p] = r
		}
	}
	return table
}
