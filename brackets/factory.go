package brackets

import (
	"fmt"
	"time"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// MatchParams — типизированные входы фабрики матчей. Фабрика чистая:
// детерминирована по входам и не делает I/O.
type MatchParams struct {
	TournamentID string
	Level        models.Level
	EntityID     string
	RoundLabel   string
	Suffix       string
	MatchNumber  int
	MatchType    models.MatchType

	Player1 models.Player
	Player2 models.Player

	DeterminesPositions []int
	IsLevelFinal        bool
	SpecialMatch        bool
	WaitingPlayer       *models.Player
}

// NewMatch materializes a scheduled match with zero points.
func NewMatch(p MatchParams) (*models.Match, error) {
	if p.Player1.ID == "" || p.Player2.ID == "" {
		return nil, fmt.Errorf("%w: both player ids are required", ErrInvalidInput)
	}
	if p.TournamentID == "" || p.EntityID == "" || p.RoundLabel == "" {
		return nil, fmt.Errorf("%w: tournament, entity and round are required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	m := &models.Match{
		ID:              MatchID(p.RoundLabel, p.Level, p.EntityID, p.Suffix),
		TournamentID:    p.TournamentID,
		TournamentLevel: p.Level,
		RoundNumber:     p.RoundLabel,
		MatchNumber:     p.MatchNumber,
		MatchType:       p.MatchType,

		Player1ID:          p.Player1.ID,
		Player1Name:        p.Player1.Name,
		Player1CommunityID: p.Player1.CommunityID,
		Player2ID:          p.Player2.ID,
		Player2Name:        p.Player2.Name,
		Player2CommunityID: p.Player2.CommunityID,

		Status:              models.MatchStatusScheduled,
		DeterminesPositions: p.DeterminesPositions,
		IsLevelFinal:        p.IsLevelFinal,
		SpecialMatch:        p.SpecialMatch,

		SearchableText: models.BuildSearchableText(
			p.Player1.Name, p.Player2.Name, p.TournamentID, p.EntityID, string(p.Level)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.SetEntityID(p.EntityID)

	if p.WaitingPlayer != nil {
		m.WaitingPlayerID = p.WaitingPlayer.ID
		m.WaitingPlayerName = p.WaitingPlayer.Name
	}
	return m, nil
}

// NewByeMatch creates the pre-completed bye: the live player is awarded the
// canonical 3-0 and the opponent is the literal BYE.
func NewByeMatch(p MatchParams) (*models.Match, error) {
	if p.Player1.ID == "" {
		return nil, fmt.Errorf("%w: bye requires a live player", ErrInvalidInput)
	}
	p.Player2 = models.Player{ID: models.ByePlayerID, Name: models.ByePlayerID}
	p.MatchType = models.MatchTypeBye

	m, err := NewMatch(p)
	if err != nil {
		return nil, err
	}
	m.Status = models.MatchStatusCompleted
	m.IsByeMatch = true
	m.Player1Points = models.ByeWinPoints
	m.Player2Points = models.ByeLossPoints
	m.WinnerID = p.Player1.ID
	m.WinnerName = p.Player1.Name
	return m, nil
}

// NewAutoAdvanceMatch handles the single-player pool: one pre-completed
// match that fixes position 1 with no game played.
func NewAutoAdvanceMatch(p MatchParams) (*models.Match, error) {
	if p.Player1.ID == "" {
		return nil, fmt.Errorf("%w: auto advancement requires a player", ErrInvalidInput)
	}
	p.Player2 = models.Player{ID: models.ByePlayerID, Name: models.ByePlayerID}
	p.MatchType = models.MatchTypeAutoAdvancement
	p.DeterminesPositions = []int{1}
	p.IsLevelFinal = true

	m, err := NewMatch(p)
	if err != nil {
		return nil, err
	}
	m.Status = models.MatchStatusCompleted
	m.IsAutoAdvancement = true
	m.Player1Points = models.ByeWinPoints
	m.Player2Points = models.ByeLossPoints
	m.WinnerID = p.Player1.ID
	m.WinnerName = p.Player1.Name
	return m, nil
}
