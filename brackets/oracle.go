package brackets

import (
	"github.com/Mutwiricris/cuesports-engine/models"
)

// Оракул результатов. Победитель и проигравший выводятся ТОЛЬКО из
// player1Points против player2Points; персистентные winnerId/loserId
// существуют для UI и никогда не читаются здесь.

// WinnerOf derives the winner of a completed match. It returns ErrUndecided
// when the match is not completed, a player id is missing, or points are
// equal.
func WinnerOf(m *models.Match) (models.Player, error) {
	if !m.Completed() || m.Player1ID == "" || m.Player2ID == "" {
		return models.Player{}, ErrUndecided
	}
	switch {
	case m.Player1Points > m.Player2Points:
		return playerOne(m), nil
	case m.Player2Points > m.Player1Points:
		return playerTwo(m), nil
	}
	return models.Player{}, ErrUndecided
}

// LoserOf derives the loser. Byes and auto-advancements have no real loser.
func LoserOf(m *models.Match) (models.Player, error) {
	if m.IsByeMatch || m.IsAutoAdvancement {
		return models.Player{}, ErrUndecided
	}
	if !m.Completed() || m.Player1ID == "" || m.Player2ID == "" {
		return models.Player{}, ErrUndecided
	}
	switch {
	case m.Player1Points > m.Player2Points:
		return playerTwo(m), nil
	case m.Player2Points > m.Player1Points:
		return playerOne(m), nil
	}
	return models.Player{}, ErrUndecided
}

// Decided reports whether a winner can be derived.
func Decided(m *models.Match) bool {
	_, err := WinnerOf(m)
	return err == nil
}

func playerOne(m *models.Match) models.Player {
	return models.Player{
		ID:          m.Player1ID,
		Name:        m.Player1Name,
		CommunityID: m.Player1CommunityID,
		Points:      m.Player1Points,
	}
}

func playerTwo(m *models.Match) models.Player {
	return models.Player{
		ID:          m.Player2ID,
		Name:        m.Player2Name,
		CommunityID: m.Player2CommunityID,
		Points:      m.Player2Points,
	}
}
