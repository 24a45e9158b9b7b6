// File: internal/engine/gate_test.go
// ============================================
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"momentum-backtest/pkg/types"
)

func TestMeetsFrequency(t *testing.T) {
	t.Parallel()
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	cases := []struct {
		name    string
		cfg     types.StrategyConfig
		current time.Time
		last    time.Time
		want    bool
	}{
		{
			// spec.md §8 Scenario 4: a weekly rebalance must compare a
			// 7-day gap, not ISO calendar weeks, across the year boundary.
			// 2023-12-28 is ISO week 52, 2024-01-04 is ISO week 1 — an
			// ISO-week comparison would wrongly see these as different
			// weeks the moment the boundary is crossed, or wrongly match
			// same-week dates that aren't 7 days apart.
			name:    "weekly across year boundary counts elapsed days",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyWeekly},
			current: date(2024, 1, 4),
			last:    date(2023, 12, 28),
			want:    true,
		},
		{
			name:    "weekly short of 7 days does not rebalance",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyWeekly},
			current: date(2024, 1, 3),
			last:    date(2023, 12, 28),
			want:    false,
		},
		{
			name:    "daily always rebalances",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyDaily},
			current: date(2024, 1, 2),
			last:    date(2024, 1, 1),
			want:    true,
		},
		{
			name:    "monthly waits for a calendar month change",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyMonthly},
			current: date(2024, 1, 31),
			last:    date(2024, 1, 1),
			want:    false,
		},
		{
			name:    "monthly triggers on month rollover",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyMonthly},
			current: date(2024, 2, 1),
			last:    date(2024, 1, 31),
			want:    true,
		},
		{
			name:    "quarterly waits for a quarter change",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyQuarterly},
			current: date(2024, 3, 15),
			last:    date(2024, 1, 15),
			want:    false,
		},
		{
			name:    "quarterly triggers on quarter rollover",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyQuarterly},
			current: date(2024, 4, 1),
			last:    date(2024, 3, 31),
			want:    true,
		},
		{
			name:    "yearly triggers only on year change",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyYearly},
			current: date(2024, 12, 31),
			last:    date(2024, 1, 1),
			want:    false,
		},
		{
			name:    "custom 2-week offset honors the parsed unit",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyCustom, CustomRebalanceOffset: "2W"},
			current: date(2024, 1, 15),
			last:    date(2024, 1, 1),
			want:    true,
		},
		{
			name:    "custom 2-week offset not yet elapsed",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyCustom, CustomRebalanceOffset: "2W"},
			current: date(2024, 1, 10),
			last:    date(2024, 1, 1),
			want:    false,
		},
		{
			name:    "custom 1-month offset honors the parsed unit",
			cfg:     types.StrategyConfig{RebalanceFrequency: types.FrequencyCustom, CustomRebalanceOffset: "1M"},
			current: date(2024, 2, 15),
			last:    date(2024, 1, 15),
			want:    true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, meetsFrequency(tc.cfg, tc.current, tc.last))
		})
	}
}

func TestQuarterOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, quarterOf(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2, quarterOf(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, quarterOf(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, quarterOf(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)))
}
