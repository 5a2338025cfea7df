package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextRunDate(t *testing.T) {
	tests := []struct {
		name      string
		from      time.Time
		frequency RecurringFrequency
		want      time.Time
	}{
		{
			name:      "weekly adds seven days",
			from:      date(2024, time.March, 1),
			frequency: RecurringFrequencyWeekly,
			want:      date(2024, time.March, 8),
		},
		{
			name:      "weekly crosses month boundary",
			from:      date(2024, time.March, 28),
			frequency: RecurringFrequencyWeekly,
			want:      date(2024, time.April, 4),
		},
		{
			name:      "monthly mid month",
			from:      date(2024, time.March, 15),
			frequency: RecurringFrequencyMonthly,
			want:      date(2024, time.April, 15),
		},
		{
			name:      "monthly from jan 31 clamps to leap day",
			from:      date(2024, time.January, 31),
			frequency: RecurringFrequencyMonthly,
			want:      date(2024, time.February, 29),
		},
		{
			name:      "monthly from jan 31 clamps to feb 28 off leap year",
			from:      date(2023, time.January, 31),
			frequency: RecurringFrequencyMonthly,
			want:      date(2023, time.February, 28),
		},
		{
			name:      "monthly from clamped feb 29 keeps day 29",
			from:      date(2024, time.February, 29),
			frequency: RecurringFrequencyMonthly,
			want:      date(2024, time.March, 29),
		},
		{
			name:      "monthly from may 31 clamps to june 30",
			from:      date(2024, time.May, 31),
			frequency: RecurringFrequencyMonthly,
			want:      date(2024, time.June, 30),
		},
		{
			name:      "monthly december rolls into next year",
			from:      date(2024, time.December, 15),
			frequency: RecurringFrequencyMonthly,
			want:      date(2025, time.January, 15),
		},
		{
			name:      "quarterly from nov 30 crosses year",
			from:      date(2024, time.November, 30),
			frequency: RecurringFrequencyQuarterly,
			want:      date(2025, time.February, 28),
		},
		{
			name:      "yearly from leap day clamps to feb 28",
			from:      date(2024, time.February, 29),
			frequency: RecurringFrequencyYearly,
			want:      date(2025, time.February, 28),
		},
		{
			name:      "yearly plain",
			from:      date(2024, time.June, 10),
			frequency: RecurringFrequencyYearly,
			want:      date(2025, time.June, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRunDate(tt.from, tt.frequency)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestNextRunDateInvalidFrequency(t *testing.T) {
	_, err := NextRunDate(date(2024, time.January, 1), RecurringFrequency("fortnightly"))
	assert.Error(t, err)
}

func TestAddClampedDatePreservesClock(t *testing.T) {
	from := time.Date(2024, time.January, 31, 9, 30, 15, 0, time.UTC)
	got := AddClampedDate(from, 0, 1, 0)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 30, 15, 0, time.UTC), got)
}
