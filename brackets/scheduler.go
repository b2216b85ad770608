package brackets

import (
	"time"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// AnnotateSchedule decorates generated matches with a suggested day of week
// and a relative date offset per round. The suggestions are advisory only:
// nothing in progression reads them back.
//
// Rule of thumb: R1 plays a week out, R2 two weeks, the positioning phase
// three weeks, anything deeper four. Small rounds fit any day, medium
// rounds prefer the weekend, large rounds land on Saturday.
func AnnotateSchedule(matches []*models.Match, pref models.SchedulingPreference) {
	if len(matches) == 0 {
		return
	}
	if pref == "" {
		pref = models.SchedulingWeekend
	}

	label := matches[0].RoundNumber
	days := daysFromNow(label)
	day := suggestedDay(len(matches), pref)

	for _, m := range matches {
		m.ScheduledDate = day
		m.SchedulingInfo = &models.SchedulingInfo{
			SuggestedDay:         day,
			DaysFromNow:          days,
			MatchesInRound:       len(matches),
			SchedulingPreference: string(pref),
			Level:                m.TournamentLevel,
		}
		m.UpdatedAt = time.Now().UTC()
	}
}

func daysFromNow(roundLabel string) int {
	switch {
	case roundLabel == "R1":
		return 7
	case roundLabel == "R2":
		return 14
	case IsFinalPhaseLabel(roundLabel):
		return 21
	default:
		return 28
	}
}

func suggestedDay(matchesInRound int, pref models.SchedulingPreference) string {
	switch {
	case matchesInRound <= 2:
		if pref == models.SchedulingFullWeek {
			return "Wednesday"
		}
		return "Saturday"
	case matchesInRound <= 8:
		if pref == models.SchedulingFullWeek {
			return "Friday"
		}
		return "Saturday"
	default:
		return "Saturday"
	}
}
