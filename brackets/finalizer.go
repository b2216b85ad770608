package brackets

import (
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// DerivePositions detects the positioning scenario from the multiset of
// final-phase matches for one entity and derives positions 1/2/3 through the
// oracle only. It never writes; atomic persistence is the store's job.
//
// Scenarios, in detection order:
//   - auto_advancement                          -> {1}
//   - two_player_final (or direct final)        -> {1,2}
//   - three_player_initial + three_player_final -> {1,2,3}
//   - semi_finals + winners/losers finals + final -> {1,2,3},
//     losers-final loser eliminated without a position.
func DerivePositions(entityMatches []*models.Match) (*models.EntityPositions, error) {
	var (
		auto       *models.Match
		twoPlayer  *models.Match
		threeInit  *models.Match
		threeFinal *models.Match
		winnersF   *models.Match
		losersF    *models.Match
		grandFinal *models.Match
	)
	for _, m := range entityMatches {
		switch m.NormalizedType() {
		case models.MatchTypeAutoAdvancement:
			auto = m
		case models.MatchTypeTwoPlayerFinal:
			twoPlayer = m
		case models.MatchTypeThreePlayerInitial:
			threeInit = m
		case models.MatchTypeThreePlayerFinal:
			threeFinal = m
		case models.MatchTypeWinnersFinal:
			winnersF = m
		case models.MatchTypeLosersFinal:
			losersF = m
		case models.MatchTypeFinal:
			grandFinal = m
		}
	}

	positions := &models.EntityPositions{
		EliminatedPlayers:  eliminatedPlayers(entityMatches),
		TournamentComplete: true,
	}

	switch {
	case auto != nil:
		positions.Position1 = positioned(playerOne(auto))
		positions.LastRoundPlayed = auto.RoundNumber
		return positions, nil

	case threeInit != nil || threeFinal != nil:
		if threeInit == nil || threeFinal == nil {
			return nil, fmt.Errorf("%w: three-player scenario needs both matches", ErrMissingPositioningMatches)
		}
		p1, err := decide(WinnerOf, threeInit)
		if err != nil {
			return nil, err
		}
		p2, err := decide(WinnerOf, threeFinal)
		if err != nil {
			return nil, err
		}
		p3, err := decide(LoserOf, threeFinal)
		if err != nil {
			return nil, err
		}
		positions.Position1, positions.Position2, positions.Position3 = positioned(p1), positioned(p2), positioned(p3)
		positions.LastRoundPlayed = threeFinal.RoundNumber
		return positions, nil

	case winnersF != nil || losersF != nil || grandFinal != nil:
		if winnersF == nil || losersF == nil || grandFinal == nil {
			return nil, fmt.Errorf("%w: four-player scenario needs winners final, losers final and final", ErrMissingPositioningMatches)
		}
		p1, err := decide(WinnerOf, winnersF)
		if err != nil {
			return nil, err
		}
		p2, err := decide(WinnerOf, grandFinal)
		if err != nil {
			return nil, err
		}
		p3, err := decide(LoserOf, grandFinal)
		if err != nil {
			return nil, err
		}
		positions.Position1, positions.Position2, positions.Position3 = positioned(p1), positioned(p2), positioned(p3)
		positions.LastRoundPlayed = grandFinal.RoundNumber
		return positions, nil

	case twoPlayer != nil:
		p1, err := decide(WinnerOf, twoPlayer)
		if err != nil {
			return nil, err
		}
		p2, err := decide(LoserOf, twoPlayer)
		if err != nil {
			return nil, err
		}
		positions.Position1, positions.Position2 = positioned(p1), positioned(p2)
		positions.LastRoundPlayed = twoPlayer.RoundNumber
		return positions, nil
	}

	return nil, fmt.Errorf("%w: no positioning matches found", ErrMissingPositioningMatches)
}

// decide applies the oracle to a decisive match. A completed match with
// equal points is a tie on a decisive match, which is fatal to progression.
func decide(oracle func(*models.Match) (models.Player, error), m *models.Match) (models.Player, error) {
	if !m.Completed() {
		return models.Player{}, fmt.Errorf("%w: positioning match %s not completed", ErrPreviousRoundIncomplete, m.ID)
	}
	p, err := oracle(m)
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: match %s", ErrTieUndecidable, m.ID)
	}
	return p, nil
}

// eliminatedPlayers lists everyone who lost out of progression entirely:
// losers of elimination matches and the losers-final loser. A player who
// lost a round but reappears in a later one (double-duty, best loser) is
// not eliminated.
func eliminatedPlayers(entityMatches []*models.Match) []string {
	lastSeen := map[string]int{}
	for _, m := range entityMatches {
		rank := LabelRank(m.RoundNumber)
		for _, id := range []string{m.Player1ID, m.Player2ID} {
			if id == "" || id == models.ByePlayerID {
				continue
			}
			if rank > lastSeen[id] {
				lastSeen[id] = rank
			}
		}
	}

	var out []string
	seen := map[string]struct{}{}
	for _, m := range entityMatches {
		t := m.NormalizedType()
		if t != models.MatchTypeStandard && t != models.MatchTypeDoubleDuty && t != models.MatchTypeLosersFinal {
			continue
		}
		loser, err := LoserOf(m)
		if err != nil {
			continue
		}
		if lastSeen[loser.ID] > LabelRank(m.RoundNumber) {
			continue
		}
		if _, dup := seen[loser.ID]; dup {
			continue
		}
		seen[loser.ID] = struct{}{}
		out = append(out, loser.ID)
	}
	return out
}

func positioned(p models.Player) *models.PositionedPlayer {
	return &models.PositionedPlayer{
		ID:          p.ID,
		Name:        p.Name,
		CommunityID: p.CommunityID,
		CountyID:    p.CountyID,
		RegionID:    p.RegionID,
		Points:      p.Points,
	}
}
