package brackets

import (
	"testing"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatch(t *testing.T) {
	m, err := NewMatch(MatchParams{
		TournamentID: "t1",
		Level:        models.LevelCommunity,
		EntityID:     "comm-1",
		RoundLabel:   "R1",
		Suffix:       MatchSuffix(1),
		MatchNumber:  1,
		MatchType:    models.MatchTypeStandard,
		Player1:      models.Player{ID: "p1", Name: "Alice", CommunityID: "comm-1"},
		Player2:      models.Player{ID: "p2", Name: "Bob", CommunityID: "comm-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "R1_COMM_comm-1_match_1", m.ID)
	assert.Equal(t, models.MatchStatusScheduled, m.Status)
	assert.Zero(t, m.Player1Points)
	assert.Zero(t, m.Player2Points)
	assert.Equal(t, "comm-1", m.CommunityID)
	assert.Equal(t, "comm-1", m.EntityID())
	assert.Contains(t, m.SearchableText, "alice")
	assert.Contains(t, m.SearchableText, "bob")
	assert.Contains(t, m.SearchableText, "t1")
	assert.Contains(t, m.SearchableText, "comm-1")
}

func TestNewMatchValidation(t *testing.T) {
	base := MatchParams{
		TournamentID: "t1",
		Level:        models.LevelCommunity,
		EntityID:     "comm-1",
		RoundLabel:   "R1",
		Player1:      models.Player{ID: "p1"},
		Player2:      models.Player{ID: "p2"},
	}

	missingPlayer := base
	missingPlayer.Player2 = models.Player{}
	_, err := NewMatch(missingPlayer)
	assert.ErrorIs(t, err, ErrInvalidInput)

	missingEntity := base
	missingEntity.EntityID = ""
	_, err = NewMatch(missingEntity)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewByeMatch(t *testing.T) {
	m, err := NewByeMatch(MatchParams{
		TournamentID: "t1",
		Level:        models.LevelCounty,
		EntityID:     "kiambu",
		RoundLabel:   "R2",
		Suffix:       ByeSuffix(1),
		MatchNumber:  3,
		Player1:      models.Player{ID: "p9", Name: "Joy"},
	})
	require.NoError(t, err)

	assert.Equal(t, "R2_CNTY_kiambu_bye_1", m.ID)
	assert.True(t, m.IsByeMatch)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
	assert.Equal(t, models.ByePlayerID, m.Player2ID)
	assert.Equal(t, models.ByeWinPoints, m.Player1Points)
	assert.Equal(t, models.ByeLossPoints, m.Player2Points)

	w, err := WinnerOf(m)
	require.NoError(t, err)
	assert.Equal(t, "p9", w.ID)
}

func TestNewAutoAdvanceMatch(t *testing.T) {
	m, err := NewAutoAdvanceMatch(MatchParams{
		TournamentID: "t1",
		Level:        models.LevelCommunity,
		EntityID:     "comm-1",
		RoundLabel:   FinalLabel(models.LevelCommunity),
		Suffix:       SuffixAutoPos1,
		MatchNumber:  1,
		Player1:      models.Player{ID: "solo", Name: "Only One"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Community_F_COMM_comm-1_AUTO_POS1", m.ID)
	assert.True(t, m.IsAutoAdvancement)
	assert.True(t, m.IsLevelFinal)
	assert.Equal(t, []int{1}, m.DeterminesPositions)
	assert.Equal(t, models.MatchStatusCompleted, m.Status)
}
