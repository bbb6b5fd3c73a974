// Package paymentid builds human-readable payment identifiers of the form
// PAY-<unix milliseconds>-<0..9999>.
package paymentid

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const (
	prefix    = "PAY-"
	suffixMax = 10000
)

// Generator produces payment ids. The zero value is not usable; use New.
type Generator struct {
	now  func() time.Time
	rand func(n int) int
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand overrides the random suffix source. fn must return a value in [0, n).
func WithRand(fn func(n int) int) Option {
	return func(g *Generator) { g.rand = fn }
}

// New returns a generator using the wall clock and math/rand/v2.
func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now, rand: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh id. Ids are not guaranteed unique; the payments table
// enforces uniqueness and callers retry on collision.
func (g *Generator) Next() string {
	ms := g.now().UnixMilli()
	return prefix + strconv.FormatInt(ms, 10) + "-" + strconv.Itoa(g.rand(suffixMax))
}
