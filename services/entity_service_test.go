package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayerRepo struct {
	players map[string]models.Player
}

func (r *fakePlayerRepo) ListByIDs(_ context.Context, ids []string) ([]models.Player, error) {
	out := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		p, ok := r.players[id]
		if !ok {
			return nil, fmt.Errorf("player not found: %s", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func playerRepoWith(players ...models.Player) *fakePlayerRepo {
	r := &fakePlayerRepo{players: map[string]models.Player{}}
	for _, p := range players {
		r.players[p.ID] = p
	}
	return r
}

func TestResolveInitialPoolsGroupsByCommunity(t *testing.T) {
	repo := playerRepoWith(
		models.Player{ID: "p1", Name: "P1", CommunityID: "c2"},
		models.Player{ID: "p2", Name: "P2", CommunityID: "c1"},
		models.Player{ID: "p3", Name: "P3", CommunityID: "c2"},
	)
	resolver := NewEntityResolver(repo)

	pools, err := resolver.ResolveInitialPools(context.Background(), &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1", "p2", "p3"},
	})
	require.NoError(t, err)

	require.Len(t, pools, 2)
	assert.Equal(t, "c1", pools[0].EntityID)
	assert.Equal(t, "c2", pools[1].EntityID)
	require.Len(t, pools[1].Players, 2)
	assert.Equal(t, "p1", pools[1].Players[0].ID)
	assert.Equal(t, "p3", pools[1].Players[1].ID)
}

func TestResolveInitialPoolsScopeFilter(t *testing.T) {
	repo := playerRepoWith(
		models.Player{ID: "p1", CommunityID: "c1"},
		models.Player{ID: "p2", CommunityID: "c2"},
	)
	resolver := NewEntityResolver(repo)

	pools, err := resolver.ResolveInitialPools(context.Background(), &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1", "p2"},
		ParticipantScope:    &models.ParticipantScope{AllowedCommunityIDs: []string{"c2"}},
	})
	require.NoError(t, err)

	require.Len(t, pools, 1)
	assert.Equal(t, "c2", pools[0].EntityID)
}

func TestResolveInitialPoolsNationalSingleton(t *testing.T) {
	repo := playerRepoWith(
		models.Player{ID: "p1"},
		models.Player{ID: "p2"},
	)
	resolver := NewEntityResolver(repo)

	pools, err := resolver.ResolveInitialPools(context.Background(), &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelNational,
		RegisteredPlayerIDs: []string{"p1", "p2"},
	})
	require.NoError(t, err)

	require.Len(t, pools, 1)
	assert.Equal(t, models.NationalEntityID, pools[0].EntityID)
	assert.Len(t, pools[0].Players, 2)
}

func TestResolveInitialPoolsErrors(t *testing.T) {
	resolver := NewEntityResolver(playerRepoWith(models.Player{ID: "p1"}))

	_, err := resolver.ResolveInitialPools(context.Background(), &models.Tournament{
		ID:                "t1",
		HierarchicalLevel: models.LevelCommunity,
	})
	assert.ErrorIs(t, err, ErrNoRegisteredPlayers)

	// Игрок без communityId не может попасть в пул уровня сообщества.
	_, err = resolver.ResolveInitialPools(context.Background(), &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1"},
	})
	assert.ErrorIs(t, err, ErrPlayerMissingEntity)
}

func finalizedBracket(positions map[string]*models.EntityPositions) *models.Bracket {
	b := models.NewBracket("t1", models.LevelCommunity, nil)
	for entityID := range positions {
		b.SetEntitySummary(models.LevelCommunity, models.EntityBracket{
			EntityID: entityID,
			Status:   models.EntityCompleted,
		})
	}
	b.Positions[models.LevelCommunity] = positions
	return b
}

func TestResolvePromotionPoolsOrdering(t *testing.T) {
	repo := playerRepoWith(
		models.Player{ID: "a1", Name: "A1", CommunityID: "c1", CountyID: "k1", Points: 9},
		models.Player{ID: "a2", Name: "A2", CommunityID: "c1", CountyID: "k1", Points: 5},
		models.Player{ID: "a3", Name: "A3", CommunityID: "c1", CountyID: "k1", Points: 3},
		models.Player{ID: "b1", Name: "B1", CommunityID: "c2", CountyID: "k1", Points: 8},
		models.Player{ID: "b2", Name: "B2", CommunityID: "c2", CountyID: "k1", Points: 4},
	)
	resolver := NewEntityResolver(repo)

	bracket := finalizedBracket(map[string]*models.EntityPositions{
		"c1": {
			Position1:          &models.PositionedPlayer{ID: "a1", Name: "A1"},
			Position2:          &models.PositionedPlayer{ID: "a2", Name: "A2"},
			Position3:          &models.PositionedPlayer{ID: "a3", Name: "A3"},
			TournamentComplete: true,
		},
		"c2": {
			Position1:          &models.PositionedPlayer{ID: "b1", Name: "B1"},
			Position2:          &models.PositionedPlayer{ID: "b2", Name: "B2"},
			TournamentComplete: true,
		},
	})

	pools, err := resolver.ResolvePromotionPools(context.Background(), bracket, models.LevelCounty)
	require.NoError(t, err)

	require.Len(t, pools, 1)
	assert.Equal(t, "k1", pools[0].EntityID)

	var ids []string
	for _, p := range pools[0].Players {
		ids = append(ids, p.ID)
		assert.Zero(t, p.Points, p.ID)
	}
	// Класс позиций важнее сущности: сперва все первые места.
	assert.Equal(t, []string{"a1", "b1", "a2", "b2", "a3"}, ids)
	assert.Equal(t, 1, pools[0].Players[0].CommunityPosition)
	assert.Equal(t, 2, pools[0].Players[2].CommunityPosition)
	assert.Equal(t, 3, pools[0].Players[4].CommunityPosition)
}

func TestResolvePromotionPoolsPendingEntities(t *testing.T) {
	resolver := NewEntityResolver(playerRepoWith())

	bracket := finalizedBracket(map[string]*models.EntityPositions{
		"c1": {
			Position1:          &models.PositionedPlayer{ID: "a1"},
			TournamentComplete: true,
		},
	})
	bracket.SetEntitySummary(models.LevelCommunity, models.EntityBracket{
		EntityID: "c2",
		Status:   models.EntityActive,
	})

	_, err := resolver.ResolvePromotionPools(context.Background(), bracket, models.LevelCounty)

	var notFinalized *LevelNotFinalizedError
	require.ErrorAs(t, err, &notFinalized)
	assert.Equal(t, models.LevelCommunity, notFinalized.Level)
	assert.Equal(t, []string{"c2"}, notFinalized.Pending)
	assert.ErrorIs(t, err, ErrLevelNotFinalized)
}

func TestResolvePromotionPoolsSnapshotFallback(t *testing.T) {
	// Документ игрока потерял countyId; снимок позиций его ещё помнит.
	repo := playerRepoWith(
		models.Player{ID: "a1", Name: "A1", CommunityID: "c1"},
	)
	resolver := NewEntityResolver(repo)

	bracket := finalizedBracket(map[string]*models.EntityPositions{
		"c1": {
			Position1:          &models.PositionedPlayer{ID: "a1", Name: "A1", CountyID: "k9"},
			TournamentComplete: true,
		},
	})

	pools, err := resolver.ResolvePromotionPools(context.Background(), bracket, models.LevelCounty)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, "k9", pools[0].EntityID)
}
