package brackets

import (
	"testing"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedMatch(p1, p2 string, pts1, pts2 int) *models.Match {
	return &models.Match{
		ID:            "R1_COMM_c1_match_1",
		Player1ID:     p1,
		Player1Name:   "Name " + p1,
		Player2ID:     p2,
		Player2Name:   "Name " + p2,
		Player1Points: pts1,
		Player2Points: pts2,
		Status:        models.MatchStatusCompleted,
	}
}

func TestWinnerOfByPoints(t *testing.T) {
	m := completedMatch("a", "b", 5, 3)

	w, err := WinnerOf(m)
	require.NoError(t, err)
	assert.Equal(t, "a", w.ID)

	l, err := LoserOf(m)
	require.NoError(t, err)
	assert.Equal(t, "b", l.ID)
}

func TestWinnerOfIgnoresPersistedWinnerField(t *testing.T) {
	// winnerId существует для UI; прогрессия читает только очки.
	m := completedMatch("a", "b", 2, 7)
	m.WinnerID = "a"

	w, err := WinnerOf(m)
	require.NoError(t, err)
	assert.Equal(t, "b", w.ID)
}

func TestWinnerOfUndecided(t *testing.T) {
	tie := completedMatch("a", "b", 4, 4)
	_, err := WinnerOf(tie)
	assert.ErrorIs(t, err, ErrUndecided)
	_, err = LoserOf(tie)
	assert.ErrorIs(t, err, ErrUndecided)

	open := completedMatch("a", "b", 5, 3)
	open.Status = models.MatchStatusLive
	_, err = WinnerOf(open)
	assert.ErrorIs(t, err, ErrUndecided)

	missing := completedMatch("a", "", 5, 3)
	_, err = WinnerOf(missing)
	assert.ErrorIs(t, err, ErrUndecided)

	assert.False(t, Decided(tie))
	assert.True(t, Decided(completedMatch("a", "b", 1, 0)))
}

func TestLoserOfByeAndAutoAdvance(t *testing.T) {
	bye := completedMatch("a", models.ByePlayerID, models.ByeWinPoints, models.ByeLossPoints)
	bye.IsByeMatch = true

	w, err := WinnerOf(bye)
	require.NoError(t, err)
	assert.Equal(t, "a", w.ID)

	_, err = LoserOf(bye)
	assert.ErrorIs(t, err, ErrUndecided)

	auto := completedMatch("a", models.ByePlayerID, models.ByeWinPoints, models.ByeLossPoints)
	auto.IsAutoAdvancement = true
	_, err = LoserOf(auto)
	assert.ErrorIs(t, err, ErrUndecided)
}
