package challenge

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/stemarena/models"
)

// eval computes a rendered expression with the usual precedence.
func eval(t *testing.T, q string) int {
	t.Helper()
	r := strings.NewReplacer("×", "*", "÷", "/", "−", "-", " ", "")
	p := &parser{src: r.Replace(q)}
	v := p.sum()
	require.Equal(t, len(p.src), p.pos, "trailing input in %q", q)
	return v
}

type parser struct {
	src string
	pos int
}

func (p *parser) sum() int {
	v := p.product()
	for p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
		op := p.src[p.pos]
		p.pos++
		if op == '+' {
			v += p.product()
		} else {
			v -= p.product()
		}
	}
	return v
}

func (p *parser) product() int {
	v := p.atom()
	for p.pos < len(p.src) && (p.src[p.pos] == '*' || p.src[p.pos] == '/') {
		op := p.src[p.pos]
		p.pos++
		if op == '*' {
			v *= p.atom()
		} else {
			v /= p.atom()
		}
	}
	return v
}

func (p *parser) atom() int {
	if p.src[p.pos] == '(' {
		p.pos++
		v := p.sum()
		p.pos++ // ')'
		return v
	}
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, _ := strconv.Atoi(p.src[start:p.pos])
	return n
}

func TestGenerator_ArithmeticAnswersMatchQuestion(t *testing.T) {
	g := NewGenerator(1)
	for i := 0; i < 500; i++ {
		c := g.GetChallenge(models.PhaseArithmetic)
		require.Equal(t, models.PhaseArithmetic, c.Phase)
		require.NotEmpty(t, c.Question)
		assert.GreaterOrEqual(t, c.Answer, 0)
		assert.LessOrEqual(t, c.Answer, maxAnswer)
		assert.Equal(t, eval(t, c.Question), c.Answer, c.Question)
	}
}

func TestGenerator_EveryTemplateIsExact(t *testing.T) {
	g := NewGenerator(3)
	for i, tpl := range templates {
		for n := 0; n < 100; n++ {
			q, v := tpl(g)
			require.Equal(t, eval(t, q), v, "template %d: %s", i, q)
		}
	}
}

func TestGenerator_ReactionOffersAMatch(t *testing.T) {
	g := NewGenerator(2)
	for i := 0; i < 200; i++ {
		c := g.GetChallenge(models.PhaseReaction)
		require.Len(t, c.Chemicals, 2+decoyCount)
		require.NotEmpty(t, c.Reactions)

		seen := map[string]bool{}
		for _, chem := range c.Chemicals {
			require.False(t, seen[chem], "duplicate %s", chem)
			seen[chem] = true
		}
		for pair := range c.Reactions {
			assert.True(t, seen[pair[0]] && seen[pair[1]])
		}
	}
}

func TestGenerator_ShieldOffersAllBlocks(t *testing.T) {
	c := NewGenerator(5).GetChallenge(models.PhaseShield)
	assert.ElementsMatch(t, Blocks, c.Blocks)
	assert.Len(t, c.Shields, 8)

	c.Blocks[0] = "mutated"
	assert.Equal(t, "acid", Blocks[0])
}

func TestGenerator_UnknownPhase(t *testing.T) {
	c := NewGenerator(5).GetChallenge(models.PhaseUnknown)
	assert.Empty(t, c.Question)
	assert.Nil(t, c.Chemicals)
}

func TestGenerator_SeedIsReproducible(t *testing.T) {
	a, b := NewGenerator(99), NewGenerator(99)
	for i := 0; i < 20; i++ {
		for _, p := range models.PhaseOrder {
			ca, cb := a.GetChallenge(p), b.GetChallenge(p)
			assert.Equal(t, ca.Question, cb.Question)
			assert.Equal(t, ca.Chemicals, cb.Chemicals)
		}
	}
}
