package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasbank/instrument-engine/engine"
)

func TestMoney_ParsingAndRounding(t *testing.T) {
	m, err := engine.MoneyFromString("1234.567")
	require.NoError(t, err)
	assert.Equal(t, "1234.57", m.Round2().String())

	_, err = engine.MoneyFromString("not-a-number")
	var invalid *engine.InvalidAmountError
	require.ErrorAs(t, err, &invalid)
	require.ErrorIs(t, err, engine.ErrInvalidAmount)
}

func TestMoney_PercentIsExact(t *testing.T) {
	// 4% of 100,000 has no float drift
	m := engine.MustMoney("100000.00")
	assert.Equal(t, "4000.00", m.Percent(4.0).Round2().String())
	assert.Equal(t, "720.00", engine.MustMoney("4000.00").Percent(18.0).Round2().String())
}

func TestMonthsElapsed(t *testing.T) {
	from := time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		to     time.Time
		months int
	}{
		{from, 0},
		{from.AddDate(0, 0, 27), 0},
		{from.AddDate(0, 1, 0), 1}, // Jan 31 + 1 month normalizes to Mar 3
		{time.Date(2026, time.February, 28, 10, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, time.March, 31, 10, 0, 0, 0, time.UTC), 2},
		{from.AddDate(1, 0, 0), 12},
		{from.AddDate(0, -1, 0), 0}, // never negative
	}
	for _, tc := range cases {
		assert.Equal(t, tc.months, engine.MonthsElapsed(from, tc.to), "to=%s", tc.to)
	}
}

func TestFixedClock(t *testing.T) {
	t0 := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	clk := engine.NewFixedClock(t0)
	assert.True(t, clk.Now().Equal(t0))

	clk.Advance(90 * time.Minute)
	assert.True(t, clk.Now().Equal(t0.Add(90*time.Minute)))

	clk.Set(t0.AddDate(0, 2, 0))
	assert.True(t, clk.Now().Equal(t0.AddDate(0, 2, 0)))
}

func TestIDGenerator_PrefixedAndUnique(t *testing.T) {
	g := engine.NewIDGenerator()
	a := g.NextWithPrefix("acc")
	b := g.NextWithPrefix("acc")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "acc-")
}
