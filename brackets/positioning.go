package brackets

import (
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// Small-field positioning. Pools of 1..4 skip ordinary knockout entirely:
// the fixed match plans below fix positions 1/2/3 with the fewest games and
// no third-place playoff.

// autoAdvance handles a single-player pool: one pre-completed match, the
// live player takes position 1, no further rounds.
func (g *Generator) autoAdvance(req RoundRequest) ([]*models.Match, error) {
	m, err := NewAutoAdvanceMatch(MatchParams{
		TournamentID: req.TournamentID,
		Level:        req.Level,
		EntityID:     req.EntityID,
		RoundLabel:   FinalLabel(req.Level),
		Suffix:       SuffixAutoPos1,
		MatchNumber:  1,
		Player1:      req.Pool[0],
	})
	if err != nil {
		return nil, err
	}
	return []*models.Match{m}, nil
}

// twoPlayerFinal handles a two-player pool: winner is position 1, loser is
// position 2, position 3 stays null.
func (g *Generator) twoPlayerFinal(req RoundRequest) ([]*models.Match, error) {
	m, err := NewMatch(MatchParams{
		TournamentID:        req.TournamentID,
		Level:               req.Level,
		EntityID:            req.EntityID,
		RoundLabel:          FinalLabel(req.Level),
		Suffix:              SuffixTwoPlayerFinal,
		MatchNumber:         1,
		MatchType:           models.MatchTypeTwoPlayerFinal,
		Player1:             req.Pool[0],
		Player2:             req.Pool[1],
		DeterminesPositions: []int{1, 2},
		IsLevelFinal:        true,
	})
	if err != nil {
		return nil, err
	}
	return []*models.Match{m}, nil
}

// threePlayerInitial starts the two-match positioning plan for three
// players: two of them play, the third is carried on the match as the
// waiting player. The winner takes position 1; the follow-up match between
// the loser and the waiting player decides positions 2 and 3.
//
// On initialization the match plays under <Level>_Final with the INITIAL
// suffix; when three winners drop out of an elimination round the same
// regime runs under <Level>_SF.
func (g *Generator) threePlayerInitial(req RoundRequest) ([]*models.Match, error) {
	pool := make([]models.Player, len(req.Pool))
	copy(pool, req.Pool)

	label := PositioningFinalLabel(req.Level)
	suffix := SuffixInitial
	if !req.FirstRound {
		label = SemiFinalLabel(req.Level)
		suffix = SuffixSF1
	}

	if !req.PreserveOrder {
		sh := g.shuffle(req.TournamentID, string(req.Level), req.EntityID, label)
		sh.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}

	m, err := NewMatch(MatchParams{
		TournamentID:        req.TournamentID,
		Level:               req.Level,
		EntityID:            req.EntityID,
		RoundLabel:          label,
		Suffix:              suffix,
		MatchNumber:         1,
		MatchType:           models.MatchTypeThreePlayerInitial,
		Player1:             pool[0],
		Player2:             pool[1],
		DeterminesPositions: []int{1},
		WaitingPlayer:       &pool[2],
	})
	if err != nil {
		return nil, err
	}
	return []*models.Match{m}, nil
}

// ThreePlayerFinal generates the follow-up once the initial match is
// completed: loser of the initial versus the carried waiting player, for
// positions 2 and 3.
func (g *Generator) ThreePlayerFinal(tournamentID string, level models.Level, entityID string, initial *models.Match) (*models.Match, error) {
	if initial.WaitingPlayerID == "" {
		return nil, fmt.Errorf("%w: initial match carries no waiting player", ErrMissingPositioningMatches)
	}
	loser, err := LoserOf(initial)
	if err != nil {
		return nil, fmt.Errorf("%w: three-player initial undecided", ErrPreviousRoundIncomplete)
	}
	return NewMatch(MatchParams{
		TournamentID: tournamentID,
		Level:        level,
		EntityID:     entityID,
		RoundLabel:   PositioningFinalLabel(level),
		Suffix:       SuffixPos23Final,
		MatchNumber:  1,
		MatchType:    models.MatchTypeThreePlayerFinal,
		Player1:      loser,
		Player2:      models.Player{ID: initial.WaitingPlayerID, Name: initial.WaitingPlayerName},
		DeterminesPositions: []int{2, 3},
		IsLevelFinal:        true,
	})
}

// semiFinals starts the five-match positioning plan for four players.
func (g *Generator) semiFinals(req RoundRequest) ([]*models.Match, error) {
	pool := make([]models.Player, len(req.Pool))
	copy(pool, req.Pool)

	label := SemiFinalLabel(req.Level)
	if !req.PreserveOrder {
		sh := g.shuffle(req.TournamentID, string(req.Level), req.EntityID, label)
		sh.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}

	suffixes := []string{SuffixSF1, SuffixSF2}
	matches := make([]*models.Match, 0, 2)
	for i := 0; i < 2; i++ {
		m, err := NewMatch(MatchParams{
			TournamentID: req.TournamentID,
			Level:        req.Level,
			EntityID:     req.EntityID,
			RoundLabel:   label,
			Suffix:       suffixes[i],
			MatchNumber:  i + 1,
			MatchType:    models.MatchTypeSemiFinal,
			Player1:      pool[i*2],
			Player2:      pool[i*2+1],
		})
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// WinnersAndLosersFinals generates the second stage of the four-player plan
// once both semi-finals are completed: SF winners meet in the winners final
// (fixing position 1), SF losers meet in the losers final (whose loser is
// eliminated outright).
func (g *Generator) WinnersAndLosersFinals(tournamentID string, level models.Level, entityID string, sf1, sf2 *models.Match) ([]*models.Match, error) {
	w1, err1 := WinnerOf(sf1)
	w2, err2 := WinnerOf(sf2)
	l1, err3 := LoserOf(sf1)
	l2, err4 := LoserOf(sf2)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, fmt.Errorf("%w: semi-finals undecided", ErrPreviousRoundIncomplete)
	}

	wf, err := NewMatch(MatchParams{
		TournamentID:        tournamentID,
		Level:               level,
		EntityID:            entityID,
		RoundLabel:          WinnersFinalLabel(level),
		Suffix:              SuffixWinnersFinal,
		MatchNumber:         1,
		MatchType:           models.MatchTypeWinnersFinal,
		Player1:             w1,
		Player2:             w2,
		DeterminesPositions: []int{1},
	})
	if err != nil {
		return nil, err
	}
	lf, err := NewMatch(MatchParams{
		TournamentID: tournamentID,
		Level:        level,
		EntityID:     entityID,
		RoundLabel:   LosersFinalLabel(level),
		Suffix:       SuffixLosersFinal,
		MatchNumber:  2,
		MatchType:    models.MatchTypeLosersFinal,
		Player1:      l1,
		Player2:      l2,
	})
	if err != nil {
		return nil, err
	}
	return []*models.Match{wf, lf}, nil
}

// GrandFinal generates the last match of the four-player plan: loser of the
// winners final versus winner of the losers final, for positions 2 and 3.
func (g *Generator) GrandFinal(tournamentID string, level models.Level, entityID string, wf, lf *models.Match) (*models.Match, error) {
	wfLoser, err1 := LoserOf(wf)
	lfWinner, err2 := WinnerOf(lf)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%w: winners/losers finals undecided", ErrPreviousRoundIncomplete)
	}
	return NewMatch(MatchParams{
		TournamentID:        tournamentID,
		Level:               level,
		EntityID:            entityID,
		RoundLabel:          FinalLabel(level),
		Suffix:              SuffixFinal,
		MatchNumber:         1,
		MatchType:           models.MatchTypeFinal,
		Player1:             wfLoser,
		Player2:             lfWinner,
		DeterminesPositions: []int{2, 3},
		IsLevelFinal:        true,
	})
}

// DirectFinal covers the guarded "two winners left after elimination" path.
func (g *Generator) DirectFinal(tournamentID string, level models.Level, entityID string, p1, p2 models.Player) (*models.Match, error) {
	return NewMatch(MatchParams{
		TournamentID:        tournamentID,
		Level:               level,
		EntityID:            entityID,
		RoundLabel:          FinalLabel(level),
		Suffix:              SuffixTwoPlayerFinal,
		MatchNumber:         1,
		MatchType:           models.MatchTypeTwoPlayerFinal,
		Player1:             p1,
		Player2:             p2,
		DeterminesPositions: []int{1, 2},
		IsLevelFinal:        true,
	})
}
