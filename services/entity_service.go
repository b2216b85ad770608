package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/repositories"
)

// EntityPool is the ordered set of players entering a level for one entity.
type EntityPool struct {
	EntityID string
	Players  []models.Player
}

// EntityResolver строит пулы участников: из зарегистрированных игроков при
// старте турнира и из финишёров нижнего уровня при продвижении.
type EntityResolver interface {
	// ResolveInitialPools groups the registered players by the entity of the
	// tournament's level. National and special tournaments have a single
	// implicit entity.
	ResolveInitialPools(ctx context.Context, t *models.Tournament) ([]EntityPool, error)

	// ResolvePromotionPools collects the finishers of the level feeding
	// target, tagged with their prior position, grouped by the target entity.
	// Pool order is by position class (all 1s, then 2s, then 3s); the
	// generator must preserve it.
	ResolvePromotionPools(ctx context.Context, bracket *models.Bracket, target models.Level) ([]EntityPool, error)
}

type entityResolver struct {
	playerRepo repositories.PlayerRepository
}

func NewEntityResolver(playerRepo repositories.PlayerRepository) EntityResolver {
	return &entityResolver{playerRepo: playerRepo}
}

func (r *entityResolver) ResolveInitialPools(ctx context.Context, t *models.Tournament) ([]EntityPool, error) {
	if !t.HierarchicalLevel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, t.HierarchicalLevel)
	}
	if len(t.RegisteredPlayerIDs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRegisteredPlayers, t.ID)
	}

	players, err := r.playerRepo.ListByIDs(ctx, t.RegisteredPlayerIDs)
	if err != nil {
		return nil, err
	}

	level := t.HierarchicalLevel
	if level == models.LevelNational || level == models.LevelSpecial {
		entityID := models.NationalEntityID
		if level == models.LevelSpecial {
			entityID = models.SpecialEntityID
		}
		return []EntityPool{{EntityID: entityID, Players: players}}, nil
	}

	grouped := map[string][]models.Player{}
	for _, p := range players {
		entityID := entityIDForLevel(p, level)
		if entityID == "" {
			return nil, fmt.Errorf("%w: player %s at level %s", ErrPlayerMissingEntity, p.ID, level)
		}
		grouped[entityID] = append(grouped[entityID], p)
	}

	return sortedPools(grouped, scopeFilter(t.ParticipantScope, level)), nil
}

func (r *entityResolver) ResolvePromotionPools(ctx context.Context, bracket *models.Bracket, target models.Level) ([]EntityPool, error) {
	prior := target.PriorLevel()
	if prior == "" {
		return nil, fmt.Errorf("%w: level %s has no feeding level", ErrInvalidLevel, target)
	}

	entities := priorEntities(bracket, prior)
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: no %s entities in bracket", ErrEntityNotFound, prior)
	}

	// Продвижение доступно только когда все сущности нижнего уровня
	// финализированы.
	var pending []string
	for _, entityID := range entities {
		p := bracket.EntityPositionsFor(prior, entityID)
		if p == nil || !p.TournamentComplete {
			pending = append(pending, entityID)
		}
	}
	if len(pending) > 0 {
		return nil, &LevelNotFinalizedError{Level: prior, Pending: pending}
	}

	// Position class first: all winners, then runners-up, then thirds, each
	// class walking the source entities in stable order.
	type finisher struct {
		snapshot *models.PositionedPlayer
		position int
	}
	var order []finisher
	for pos := 1; pos <= 3; pos++ {
		for _, entityID := range entities {
			if f := bracket.EntityPositionsFor(prior, entityID).Finishers()[pos]; f != nil {
				order = append(order, finisher{snapshot: f, position: pos})
			}
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: level %s finalized with no finishers", ErrLevelNotFinalized, prior)
	}

	ids := make([]string, len(order))
	for i, f := range order {
		ids[i] = f.snapshot.ID
	}
	players, err := r.playerRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	grouped := map[string][]models.Player{}
	for i, f := range order {
		p := players[i]
		p.Points = 0
		p.SetPriorPosition(prior, f.position)

		entityID := models.NationalEntityID
		if target != models.LevelNational {
			entityID = entityIDForLevel(p, target)
			if entityID == "" {
				// Stale player doc; the finalize snapshot still knows where
				// the player came from.
				entityID = snapshotEntityID(f.snapshot, target)
			}
			if entityID == "" {
				return nil, fmt.Errorf("%w: player %s promoting to %s", ErrPlayerMissingEntity, p.ID, target)
			}
		}
		grouped[entityID] = append(grouped[entityID], p)
	}

	return sortedPools(grouped, nil), nil
}

func entityIDForLevel(p models.Player, level models.Level) string {
	switch level {
	case models.LevelCommunity:
		return p.CommunityID
	case models.LevelCounty:
		return p.CountyID
	case models.LevelRegional:
		return p.RegionID
	}
	return ""
}

func snapshotEntityID(s *models.PositionedPlayer, level models.Level) string {
	switch level {
	case models.LevelCounty:
		return s.CountyID
	case models.LevelRegional:
		return s.RegionID
	}
	return ""
}

func priorEntities(bracket *models.Bracket, prior models.Level) []string {
	seen := map[string]struct{}{}
	for entityID := range bracket.Rounds[prior] {
		seen[entityID] = struct{}{}
	}
	for entityID := range bracket.BracketLevels[prior] {
		seen[entityID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for entityID := range seen {
		out = append(out, entityID)
	}
	sort.Strings(out)
	return out
}

func scopeFilter(scope *models.ParticipantScope, level models.Level) map[string]struct{} {
	if scope == nil {
		return nil
	}
	var allowed []string
	switch level {
	case models.LevelCommunity:
		allowed = scope.AllowedCommunityIDs
	case models.LevelCounty:
		allowed = scope.AllowedCountyIDs
	case models.LevelRegional:
		allowed = scope.AllowedRegionIDs
	}
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	return set
}

func sortedPools(grouped map[string][]models.Player, allowed map[string]struct{}) []EntityPool {
	keys := make([]string, 0, len(grouped))
	for entityID := range grouped {
		if allowed != nil {
			if _, ok := allowed[entityID]; !ok {
				continue
			}
		}
		keys = append(keys, entityID)
	}
	sort.Strings(keys)

	pools := make([]EntityPool, 0, len(keys))
	for _, entityID := range keys {
		pools = append(pools, EntityPool{EntityID: entityID, Players: grouped[entityID]})
	}
	return pools
}
