package challenge

import "fmt"

const (
	maxAnswer       = 150
	expressionTries = 30
)

type template func(g *Generator) (string, int)

var templates = []template{
	func(g *Generator) (string, int) {
		a, b, c, d := g.between(2, 9), g.between(2, 9), g.between(2, 6), g.between(1, 5)
		return fmt.Sprintf("%d + %d × %d − %d", a, b, c, d), a + b*c - d
	},
	func(g *Generator) (string, int) {
		a, b, c := g.between(2, 8), g.between(2, 8), g.between(2, 6)
		return fmt.Sprintf("(%d + %d) × %d", a, b, c), (a + b) * c
	},
	func(g *Generator) (string, int) {
		a, c, d := g.between(2, 9), g.between(2, 5), g.between(2, 5)
		b := d * g.between(2, 4)
		return fmt.Sprintf("%d × %d + %d ÷ %d", a, c, b, d), a*c + b/d
	},
	func(g *Generator) (string, int) {
		a, b, c := g.between(6, 15), g.between(1, 5), g.between(2, 5)
		return fmt.Sprintf("(%d − %d) × %d", a, b, c), (a - b) * c
	},
	func(g *Generator) (string, int) {
		a, b, c, d := g.between(2, 8), g.between(2, 6), g.between(2, 5), g.between(1, 4)
		return fmt.Sprintf("%d × %d − %d × %d", a, b, c, d), a*b - c*d
	},
	func(g *Generator) (string, int) {
		a, b, c, m := g.between(2, 9), g.between(3, 9), g.between(1, 5), g.between(2, 5)
		if c >= b {
			c = 1
		}
		return fmt.Sprintf("%d + (%d − %d) × %d", a, b, c, m), a + (b-c)*m
	},
}

// expression draws random templates until one evaluates to an integer in
// [0, maxAnswer]; after expressionTries misses it falls back to a + b × c.
// Callers hold g.mutex.
func (g *Generator) expression() (string, int) {
	for i := 0; i < expressionTries; i++ {
		q, v := templates[g.rnd.Intn(len(templates))](g)
		if v >= 0 && v <= maxAnswer {
			return q, v
		}
	}
	a, b, c := g.between(2, 9), g.between(2, 9), g.between(2, 6)
	return fmt.Sprintf("%d + %d × %d", a, b, c), a + b*c
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rnd.Intn(hi-lo+1)
}
