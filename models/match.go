package models

import (
	"strings"
	"time"
)

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
	MatchStatusDisputed  MatchStatus = "disputed"
)

// MatchType различает обычные матчи на выбывание и позиционные матчи,
// определяющие места 1/2/3.
type MatchType string

const (
	MatchTypeStandard           MatchType = "standard"
	MatchTypeBye                MatchType = "bye"
	MatchTypeAutoAdvancement    MatchType = "auto_advancement"
	MatchTypeTwoPlayerFinal     MatchType = "two_player_final"
	MatchTypeThreePlayerInitial MatchType = "three_player_initial"
	MatchTypeThreePlayerFinal   MatchType = "three_player_final"
	MatchTypeSemiFinal          MatchType = "semi_final"
	MatchTypeWinnersFinal       MatchType = "winners_final"
	MatchTypeLosersFinal        MatchType = "losers_final"
	MatchTypeFinal              MatchType = "final"
	MatchTypeDoubleDuty         MatchType = "double_duty"

	// Legacy bracket-scenario tags still present in old persisted matches.
	// The state machine normalizes them to the modern positioning types.
	MatchTypeLegacyWB  MatchType = "legacy_winners_bracket"
	MatchTypeLegacyLB  MatchType = "legacy_losers_bracket"
	MatchTypeLegacy3WS MatchType = "legacy_three_way_series"
)

// ByePlayerID is the literal opponent id used on bye matches.
const ByePlayerID = "BYE"

// Canonical points awarded on a bye.
const (
	ByeWinPoints  = 3
	ByeLossPoints = 0
)

// SchedulingInfo — рекомендация планировщика. Ни один компонент ядра от неё
// не зависит.
type SchedulingInfo struct {
	SuggestedDay         string `json:"suggestedDay"`
	DaysFromNow          int    `json:"daysFromNow"`
	MatchesInRound       int    `json:"matchesInRound"`
	SchedulingPreference string `json:"schedulingPreference"`
	Level                Level  `json:"level"`
}

type Match struct {
	ID              string `json:"id"`
	TournamentID    string `json:"tournamentId"`
	TournamentLevel Level  `json:"tournamentLevel"`
	RoundNumber     string `json:"roundNumber"`
	MatchNumber     int    `json:"matchNumber"`

	MatchType MatchType `json:"matchType"`

	Player1ID          string `json:"player1Id"`
	Player1Name        string `json:"player1Name"`
	Player1CommunityID string `json:"player1CommunityId"`
	Player1Points      int    `json:"player1Points"`

	Player2ID          string `json:"player2Id"`
	Player2Name        string `json:"player2Name"`
	Player2CommunityID string `json:"player2CommunityId"`
	Player2Points      int    `json:"player2Points"`

	CommunityID string `json:"communityId,omitempty"`
	CountyID    string `json:"countyId,omitempty"`
	RegionID    string `json:"regionId,omitempty"`

	Status MatchStatus `json:"status"`

	IsByeMatch        bool `json:"isByeMatch"`
	IsAutoAdvancement bool `json:"isAutoAdvancement"`
	IsLevelFinal      bool `json:"isLevelFinal"`
	SpecialMatch      bool `json:"specialMatch"` // double-duty extra match

	DeterminesPositions []int `json:"determinesPositions,omitempty"`

	// Used by the 3-player regime: the unpaired finalist carried on the
	// initial match until the positioning final is generated.
	WaitingPlayerID   string `json:"waitingPlayerId,omitempty"`
	WaitingPlayerName string `json:"waitingPlayerName,omitempty"`

	// Persisted for the UI only. Progression derives results from points;
	// these fields must never drive the state machine.
	WinnerID   string `json:"winnerId,omitempty"`
	WinnerName string `json:"winnerName,omitempty"`
	LoserID    string `json:"loserId,omitempty"`
	LoserName  string `json:"loserName,omitempty"`

	ScheduledDate  string          `json:"scheduledDate,omitempty"`
	SchedulingInfo *SchedulingInfo `json:"schedulingInfo,omitempty"`
	VenueID        string          `json:"venueId,omitempty"`

	SearchableText string    `json:"searchableText"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (m *Match) Completed() bool {
	return m.Status == MatchStatusCompleted
}

// EntityID returns the id of the entity this match belongs to: the
// community/county/region matching the level, or the implicit singleton.
func (m *Match) EntityID() string {
	switch m.TournamentLevel {
	case LevelCommunity:
		return m.CommunityID
	case LevelCounty:
		return m.CountyID
	case LevelRegional:
		return m.RegionID
	case LevelNational:
		return NationalEntityID
	case LevelSpecial:
		return SpecialEntityID
	}
	return ""
}

// SetEntityID assigns exactly the geographic field matching the level.
func (m *Match) SetEntityID(entityID string) {
	switch m.TournamentLevel {
	case LevelCommunity:
		m.CommunityID = entityID
	case LevelCounty:
		m.CountyID = entityID
	case LevelRegional:
		m.RegionID = entityID
	}
}

// NormalizedType maps legacy bracket-scenario tags onto the modern
// positioning types so that one code path handles both.
func (m *Match) NormalizedType() MatchType {
	switch m.MatchType {
	case MatchTypeLegacyWB:
		return MatchTypeWinnersFinal
	case MatchTypeLegacyLB:
		return MatchTypeLosersFinal
	case MatchTypeLegacy3WS:
		return MatchTypeThreePlayerInitial
	}
	return m.MatchType
}

// BuildSearchableText composes the lowercase search blob from both player
// names, the tournament id, the entity id and the level.
func BuildSearchableText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.ToLower(strings.Join(kept, " "))
}
