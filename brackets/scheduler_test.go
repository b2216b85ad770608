package brackets

import (
	"testing"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotateScheduleRoundOffsets(t *testing.T) {
	cases := []struct {
		label string
		days  int
	}{
		{"R1", 7},
		{"R2", 14},
		{"Community_SF", 21},
		{"County_F", 21},
		{"R3", 28},
	}
	for _, tc := range cases {
		m := stdMatch(tc.label, 1, "a", "b", 0, 0)
		AnnotateSchedule([]*models.Match{m}, models.SchedulingWeekend)
		require.NotNil(t, m.SchedulingInfo, tc.label)
		assert.Equal(t, tc.days, m.SchedulingInfo.DaysFromNow, tc.label)
	}
}

func TestAnnotateScheduleDaySelection(t *testing.T) {
	small := []*models.Match{stdMatch("R1", 1, "a", "b", 0, 0)}
	AnnotateSchedule(small, models.SchedulingFullWeek)
	assert.Equal(t, "Wednesday", small[0].ScheduledDate)

	AnnotateSchedule(small, models.SchedulingWeekend)
	assert.Equal(t, "Saturday", small[0].ScheduledDate)

	medium := make([]*models.Match, 5)
	for i := range medium {
		medium[i] = stdMatch("R1", i+1, "a", "b", 0, 0)
	}
	AnnotateSchedule(medium, models.SchedulingFullWeek)
	assert.Equal(t, "Friday", medium[0].ScheduledDate)

	large := make([]*models.Match, 12)
	for i := range large {
		large[i] = stdMatch("R1", i+1, "a", "b", 0, 0)
	}
	AnnotateSchedule(large, models.SchedulingFullWeek)
	assert.Equal(t, "Saturday", large[0].ScheduledDate)
}

func TestAnnotateScheduleDefaultsToWeekend(t *testing.T) {
	m := stdMatch("R1", 1, "a", "b", 0, 0)
	AnnotateSchedule([]*models.Match{m}, "")
	require.NotNil(t, m.SchedulingInfo)
	assert.Equal(t, string(models.SchedulingWeekend), m.SchedulingInfo.SchedulingPreference)
	assert.Equal(t, 1, m.SchedulingInfo.MatchesInRound)
}
