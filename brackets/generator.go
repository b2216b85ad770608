package brackets

import (
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// Generator emits the matches of one round for one entity. It has two
// regimes: standard elimination pairing for pools of five or more, and the
// small-field positioning brackets for pools of 1..4 which determine the
// top three without a redundant third-place game.
type Generator struct {
	shuffle ShufflerFactory
}

func NewGenerator(factory ShufflerFactory) *Generator {
	if factory == nil {
		factory = SeededShufflerFactory
	}
	return &Generator{shuffle: factory}
}

// RoundRequest describes the pool entering a round.
type RoundRequest struct {
	TournamentID string
	Level        models.Level
	EntityID     string

	// RoundLabel is the elimination label (R1, R2, ...) to generate under.
	// Small pools ignore it: the positioning regime picks its own labels.
	RoundLabel string

	Pool []models.Player

	// FirstRound marks the entry round of the entity: odd pools absorb the
	// unpaired player with a double-duty match instead of a bye, and a
	// 3-player pool starts the INITIAL/POS23_FINAL label scheme.
	FirstRound bool

	// PreserveOrder skips shuffling. Promotion rounds pair winners by prior
	// position class, so the resolver's ordering must survive.
	PreserveOrder bool
}

// GenerateRound dispatches on pool size.
func (g *Generator) GenerateRound(req RoundRequest) ([]*models.Match, error) {
	if err := validatePool(req.Pool); err != nil {
		return nil, err
	}

	switch len(req.Pool) {
	case 1:
		return g.autoAdvance(req)
	case 2:
		return g.twoPlayerFinal(req)
	case 3:
		return g.threePlayerInitial(req)
	case 4:
		return g.semiFinals(req)
	default:
		return g.elimination(req)
	}
}

func validatePool(pool []models.Player) error {
	if len(pool) == 0 {
		return fmt.Errorf("%w: empty pool", ErrInsufficientPlayers)
	}
	seen := make(map[string]struct{}, len(pool))
	for _, p := range pool {
		if p.ID == "" {
			return fmt.Errorf("%w: player with empty id in pool", ErrInvalidInput)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// elimination shuffles the pool and pairs consecutively. For the first round
// only, an odd pool larger than three is absorbed by a double-duty match:
// the unpaired player plays a randomly chosen already-paired player a second
// time. On any later round the unpaired player receives a bye (the caller
// will have attached a best-performing loser first when one exists).
func (g *Generator) elimination(req RoundRequest) ([]*models.Match, error) {
	if _, ok := ParseEliminationRound(req.RoundLabel); !ok {
		return nil, fmt.Errorf("%w: elimination round needs an Rn label, got %q", ErrInvalidInput, req.RoundLabel)
	}

	pool := make([]models.Player, len(req.Pool))
	copy(pool, req.Pool)

	sh := g.shuffle(req.TournamentID, string(req.Level), req.EntityID, req.RoundLabel)
	if !req.PreserveOrder {
		sh.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}

	matches := make([]*models.Match, 0, len(pool)/2+1)
	num := 0
	for i := 0; i+1 < len(pool); i += 2 {
		num++
		m, err := NewMatch(MatchParams{
			TournamentID: req.TournamentID,
			Level:        req.Level,
			EntityID:     req.EntityID,
			RoundLabel:   req.RoundLabel,
			Suffix:       MatchSuffix(num),
			MatchNumber:  num,
			MatchType:    models.MatchTypeStandard,
			Player1:      pool[i],
			Player2:      pool[i+1],
		})
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	if len(pool)%2 == 1 {
		odd := pool[len(pool)-1]
		if req.FirstRound && len(pool) > 3 {
			opponent := pool[sh.Intn(len(pool)-1)]
			num++
			m, err := NewMatch(MatchParams{
				TournamentID: req.TournamentID,
				Level:        req.Level,
				EntityID:     req.EntityID,
				RoundLabel:   req.RoundLabel,
				Suffix:       MatchSuffix(num),
				MatchNumber:  num,
				MatchType:    models.MatchTypeDoubleDuty,
				Player1:      odd,
				Player2:      opponent,
				SpecialMatch: true,
			})
			if err != nil {
				return nil, err
			}
			matches = append(matches, m)
		} else {
			bye, err := NewByeMatch(MatchParams{
				TournamentID: req.TournamentID,
				Level:        req.Level,
				EntityID:     req.EntityID,
				RoundLabel:   req.RoundLabel,
				Suffix:       ByeSuffix(1),
				MatchNumber:  num + 1,
				Player1:      odd,
			})
			if err != nil {
				return nil, err
			}
			matches = append(matches, bye)
		}
	}

	return matches, nil
}
