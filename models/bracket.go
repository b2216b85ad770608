package models

import "time"

type RoundStatus string

const (
	RoundPending    RoundStatus = "pending"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
)

type EntityStatus string

const (
	EntityActive    EntityStatus = "active"
	EntityCompleted EntityStatus = "completed"
	EntityCancelled EntityStatus = "cancelled"
)

// AdvancementRules — описательная часть документа сетки, читается UI.
type AdvancementRules struct {
	Type             string `json:"type"`
	LosersEliminated bool   `json:"losersEliminated"`
	WinnersAdvance   bool   `json:"winnersAdvance"`
	FinalPositions   []int  `json:"finalPositions"`
}

// EntityBracket — сводка по одной сущности (сообщество, округ, регион).
type EntityBracket struct {
	EntityID     string       `json:"entityId"`
	CurrentRound string       `json:"currentRound"`
	PlayersCount int          `json:"playersCount"`
	Status       EntityStatus `json:"status"`
}

// PositionedPlayer is the player snapshot written into positions 1/2/3.
type PositionedPlayer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CommunityID string `json:"communityId,omitempty"`
	CountyID    string `json:"countyId,omitempty"`
	RegionID    string `json:"regionId,omitempty"`
	Points      int    `json:"points"`
}

// EntityPositions holds the finalized 1/2/3 finishers for one entity.
// Position3 is nil for two-player pools; positions 2 and 3 are nil for a
// single-player pool.
type EntityPositions struct {
	Position1          *PositionedPlayer `json:"position1"`
	Position2          *PositionedPlayer `json:"position2"`
	Position3          *PositionedPlayer `json:"position3"`
	EliminatedPlayers  []string          `json:"eliminatedPlayers,omitempty"`
	LastRoundPlayed    string            `json:"lastRoundPlayed,omitempty"`
	TournamentComplete bool              `json:"tournamentComplete"`
}

// Finishers returns the non-nil positions keyed 1..3.
func (p *EntityPositions) Finishers() map[int]*PositionedPlayer {
	out := make(map[int]*PositionedPlayer, 3)
	if p.Position1 != nil {
		out[1] = p.Position1
	}
	if p.Position2 != nil {
		out[2] = p.Position2
	}
	if p.Position3 != nil {
		out[3] = p.Position3
	}
	return out
}

// Bracket — единый документ сетки на турнир (tournament_brackets/<id>).
type Bracket struct {
	TournamentID      string           `json:"tournamentId"`
	HierarchicalLevel Level            `json:"hierarchicalLevel"`
	AdvancementRules  AdvancementRules `json:"advancementRules"`

	// level -> entityId -> summary
	BracketLevels map[Level]map[string]EntityBracket `json:"bracketLevels"`

	// level -> entityId -> roundLabel -> ordered match ids
	Rounds map[Level]map[string]map[string][]string `json:"rounds"`

	// roundLabel -> status (labels are unique per entity via the entity id
	// embedded in the key: "<level>:<entity>:<round>")
	RoundStatus map[string]RoundStatus `json:"roundStatus"`

	// level -> entityId -> positions
	Positions map[Level]map[string]*EntityPositions `json:"positions"`

	ParticipantScope        *ParticipantScope      `json:"participantScope,omitempty"`
	SpecialTournamentConfig map[string]interface{} `json:"specialTournamentConfig,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

func NewBracket(tournamentID string, level Level, scope *ParticipantScope) *Bracket {
	now := time.Now().UTC()
	return &Bracket{
		TournamentID:      tournamentID,
		HierarchicalLevel: level,
		AdvancementRules: AdvancementRules{
			Type:             "single_elimination",
			LosersEliminated: true,
			WinnersAdvance:   true,
			FinalPositions:   []int{1, 2, 3},
		},
		BracketLevels:    map[Level]map[string]EntityBracket{},
		Rounds:           map[Level]map[string]map[string][]string{},
		RoundStatus:      map[string]RoundStatus{},
		Positions:        map[Level]map[string]*EntityPositions{},
		ParticipantScope: scope,
		CreatedAt:        now,
		LastUpdated:      now,
	}
}

// RoundKey builds the key used in RoundStatus. Round labels repeat across
// entities, so the entity id is part of the key.
func RoundKey(level Level, entityID, roundLabel string) string {
	return string(level) + ":" + entityID + ":" + roundLabel
}

// RoundMatchIDs returns the persisted id list for one round, or nil.
func (b *Bracket) RoundMatchIDs(level Level, entityID, roundLabel string) []string {
	if b.Rounds == nil {
		return nil
	}
	return b.Rounds[level][entityID][roundLabel]
}

// SetRound records the id list for one round and marks it in progress.
func (b *Bracket) SetRound(level Level, entityID, roundLabel string, matchIDs []string) {
	if b.Rounds[level] == nil {
		b.Rounds[level] = map[string]map[string][]string{}
	}
	if b.Rounds[level][entityID] == nil {
		b.Rounds[level][entityID] = map[string][]string{}
	}
	b.Rounds[level][entityID][roundLabel] = matchIDs
	if b.RoundStatus == nil {
		b.RoundStatus = map[string]RoundStatus{}
	}
	b.RoundStatus[RoundKey(level, entityID, roundLabel)] = RoundInProgress
}

// EntityPositionsFor returns the finalized positions, or nil.
func (b *Bracket) EntityPositionsFor(level Level, entityID string) *EntityPositions {
	if b.Positions == nil {
		return nil
	}
	return b.Positions[level][entityID]
}

// SetEntitySummary upserts the per-entity summary for a level.
func (b *Bracket) SetEntitySummary(level Level, summary EntityBracket) {
	if b.BracketLevels[level] == nil {
		b.BracketLevels[level] = map[string]EntityBracket{}
	}
	b.BracketLevels[level][summary.EntityID] = summary
}
