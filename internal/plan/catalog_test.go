package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusapalma/nusapalma/internal/apperr"
)

func TestDefaultCatalog(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		key          string
		price        int64
		durationDays *int
	}{
		{key: Free, price: 0, durationDays: nil},
		{key: Basic, price: 50000, durationDays: days(30)},
		{key: Premium, price: 100000, durationDays: days(30)},
		{key: Enterprise, price: 250000, durationDays: days(30)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p, err := c.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.key, p.Key)
			assert.Equal(t, tt.price, p.Price)
			assert.Equal(t, tt.durationDays, p.DurationDays)
			assert.NotEmpty(t, p.Features)
			assert.Equal(t, tt.price == 0, p.IsFree())
		})
	}
}

func TestCatalog_GetUnknownKey(t *testing.T) {
	c := MustDefault()

	_, err := c.Get("platinum")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, ErrInvalidPlanMessage, apperr.Message(err, ""))
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := MustDefault()

	p, err := c.Get(Basic)
	require.NoError(t, err)
	p.Price = 1
	*p.DurationDays = 1
	p.Features[0] = "changed"

	all := c.All()
	all[Premium] = Plan{Key: Premium, Price: 2}

	again, err := c.Get(Basic)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), again.Price)
	assert.Equal(t, 30, *again.DurationDays)
	assert.Equal(t, "Semua fitur Free", again.Features[0])

	premium, err := c.Get(Premium)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), premium.Price)
}

func TestCatalog_StableAcrossCalls(t *testing.T) {
	c := MustDefault()

	first := c.All()
	for range 5 {
		assert.Equal(t, first, c.All())
	}
}

func TestCatalog_Ordered(t *testing.T) {
	ordered := MustDefault().Ordered()

	require.Len(t, ordered, 4)
	for i, p := range ordered {
		assert.Equal(t, Keys[i], p.Key)
	}
}

func TestNewCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries []Plan
	}{
		{name: "empty", entries: nil},
		{name: "unknown key", entries: []Plan{{Key: Free}, {Key: "gold", Price: 1}}},
		{name: "duplicate key", entries: []Plan{{Key: Free}, {Key: Free}}},
		{name: "negative price", entries: []Plan{{Key: Free}, {Key: Basic, Price: -1}}},
		{name: "zero duration", entries: []Plan{{Key: Free}, {Key: Basic, Price: 1, DurationDays: days(0)}}},
		{name: "missing free", entries: []Plan{{Key: Basic, Price: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog(tt.entries)
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestNewCatalog_DoesNotAliasInput(t *testing.T) {
	entries := Default()
	c, err := NewCatalog(entries)
	require.NoError(t, err)

	entries[1].Price = 999
	entries[1].Features[0] = "changed"

	p, err := c.Get(Basic)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), p.Price)
	assert.Equal(t, "Semua fitur Free", p.Features[0])
}
