package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchNormalizedType(t *testing.T) {
	cases := map[MatchType]MatchType{
		MatchTypeLegacyWB:  MatchTypeWinnersFinal,
		MatchTypeLegacyLB:  MatchTypeLosersFinal,
		MatchTypeLegacy3WS: MatchTypeThreePlayerInitial,
		MatchTypeStandard:  MatchTypeStandard,
		MatchTypeFinal:     MatchTypeFinal,
	}
	for in, want := range cases {
		m := Match{MatchType: in}
		assert.Equal(t, want, m.NormalizedType(), string(in))
	}
}

func TestMatchEntityID(t *testing.T) {
	m := Match{TournamentLevel: LevelCommunity}
	m.SetEntityID("comm-1")
	assert.Equal(t, "comm-1", m.CommunityID)
	assert.Equal(t, "comm-1", m.EntityID())

	m = Match{TournamentLevel: LevelCounty}
	m.SetEntityID("kiambu")
	assert.Equal(t, "kiambu", m.CountyID)
	assert.Equal(t, "kiambu", m.EntityID())
	assert.Empty(t, m.CommunityID)

	assert.Equal(t, NationalEntityID, (&Match{TournamentLevel: LevelNational}).EntityID())
	assert.Equal(t, SpecialEntityID, (&Match{TournamentLevel: LevelSpecial}).EntityID())
}

func TestBuildSearchableText(t *testing.T) {
	got := BuildSearchableText("Alice", "", "Bob", "T1")
	assert.Equal(t, "alice bob t1", got)
}
