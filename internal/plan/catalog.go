// Package plan holds the subscription plan catalog: price, duration and
// feature list for each plan key. The catalog is built once at startup and
// never changes afterwards; every accessor hands out copies.
package plan

import (
	"fmt"
	"slices"

	"github.com/nusapalma/nusapalma/internal/apperr"
)

// Plan keys.
const (
	Free       = "free"
	Basic      = "basic"
	Premium    = "premium"
	Enterprise = "enterprise"
)

// Keys lists the plan keys in tier order.
var Keys = []string{Free, Basic, Premium, Enterprise}

// Plan is one catalog entry.
type Plan struct {
	Key          string   `json:"key" yaml:"key"`
	Name         string   `json:"name" yaml:"name"`
	Price        int64    `json:"price" yaml:"price"`            // smallest IDR unit; 0 for free
	DurationDays *int     `json:"duration" yaml:"duration_days"` // nil means unlimited
	Features     []string `json:"features" yaml:"features"`
}

// IsFree reports whether the plan can be activated without a payment.
func (p Plan) IsFree() bool {
	return p.Price == 0
}

func (p Plan) clone() Plan {
	c := p
	if p.DurationDays != nil {
		d := *p.DurationDays
		c.DurationDays = &d
	}
	c.Features = slices.Clone(p.Features)
	return c
}

// Catalog is the read-only plan table.
type Catalog struct {
	plans map[string]Plan
}

// ErrInvalidPlanMessage is shown when a plan key is not in the catalog.
const ErrInvalidPlanMessage = "Paket langganan tidak valid"

// NewCatalog builds a catalog from entries. Every key must be one of Keys,
// appear once, have a non-negative price and a positive duration when set.
func NewCatalog(entries []Plan) (*Catalog, error) {
	const op = "plan.NewCatalog"
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: empty catalog", op)
	}
	plans := make(map[string]Plan, len(entries))
	for _, e := range entries {
		if !slices.Contains(Keys, e.Key) {
			return nil, fmt.Errorf("%s: unknown plan key %q", op, e.Key)
		}
		if _, dup := plans[e.Key]; dup {
			return nil, fmt.Errorf("%s: duplicate plan key %q", op, e.Key)
		}
		if e.Price < 0 {
			return nil, fmt.Errorf("%s: negative price for %q", op, e.Key)
		}
		if e.DurationDays != nil && *e.DurationDays <= 0 {
			return nil, fmt.Errorf("%s: non-positive duration for %q", op, e.Key)
		}
		plans[e.Key] = e.clone()
	}
	if _, ok := plans[Free]; !ok {
		return nil, fmt.Errorf("%s: catalog has no %q plan", op, Free)
	}
	return &Catalog{plans: plans}, nil
}

// Get returns the plan for key, or a validation error for an unknown key.
func (c *Catalog) Get(key string) (Plan, error) {
	p, ok := c.plans[key]
	if !ok {
		return Plan{}, apperr.Validation(ErrInvalidPlanMessage)
	}
	return p.clone(), nil
}

// All returns every plan keyed by plan key.
func (c *Catalog) All() map[string]Plan {
	out := make(map[string]Plan, len(c.plans))
	for k, p := range c.plans {
		out[k] = p.clone()
	}
	return out
}

// Ordered returns the plans in tier order.
func (c *Catalog) Ordered() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, k := range Keys {
		if p, ok := c.plans[k]; ok {
			out = append(out, p.clone())
		}
	}
	return out
}

func days(n int) *int {
	return &n
}

// Default returns the built-in catalog entries.
func Default() []Plan {
	return []Plan{
		{
			Key:   Free,
			Name:  "Gratis",
			Price: 0,
			Features: []string{
				"Input panen dasar",
				"Dashboard dasar",
				"Materi edukasi terbatas",
				"Riwayat panen 3 bulan terakhir",
			},
		},
		{
			Key:          Basic,
			Name:         "Basic",
			Price:        50000,
			DurationDays: days(30),
			Features: []string{
				"Semua fitur Free",
				"Input panen unlimited",
				"Riwayat panen unlimited",
				"Statistik lengkap",
				"Semua materi edukasi",
				"Prioritas dukungan",
			},
		},
		{
			Key:          Premium,
			Name:         "Premium",
			Price:        100000,
			DurationDays: days(30),
			Features: []string{
				"Semua fitur Basic",
				"Analitik lanjutan",
				"Export data",
				"Akses beasiswa premium",
				"Webinar eksklusif",
				"Konsultasi ahli",
			},
		},
		{
			Key:          Enterprise,
			Name:         "Enterprise",
			Price:        250000,
			DurationDays: days(30),
			Features: []string{
				"Semua fitur Premium",
				"Multi-user access",
				"API access",
				"Custom reporting",
				"Dedicated support",
				"Training khusus",
			},
		},
	}
}

// MustDefault builds the built-in catalog and panics if it is inconsistent.
func MustDefault() *Catalog {
	c, err := NewCatalog(Default())
	if err != nil {
		panic(err)
	}
	return c
}
