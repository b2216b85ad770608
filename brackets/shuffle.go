package brackets

import (
	"hash/fnv"
	"math/rand"
	"strings"
)

// Shuffler abstracts the random pairing order so tests can pin it.
type Shuffler interface {
	// Shuffle permutes n elements via swap, like rand.Shuffle.
	Shuffle(n int, swap func(i, j int))
	// Intn returns a value in [0,n), used to pick the double-duty opponent.
	Intn(n int) int
}

// ShufflerFactory yields the shuffler for one (tournament, level, entity,
// round) cell. Production seeds a PRNG from those coordinates so repeated
// generation of the same round produces identical pairings.
type ShufflerFactory func(tournamentID, level, entityID, roundLabel string) Shuffler

type seededShuffler struct{ rng *rand.Rand }

func (s *seededShuffler) Shuffle(n int, swap func(i, j int)) { s.rng.Shuffle(n, swap) }
func (s *seededShuffler) Intn(n int) int                     { return s.rng.Intn(n) }

// SeededShufflerFactory is the default factory: FNV-1a over the joined
// coordinates seeds math/rand.
func SeededShufflerFactory(tournamentID, level, entityID, roundLabel string) Shuffler {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join([]string{tournamentID, level, entityID, roundLabel}, "|")))
	return &seededShuffler{rng: rand.New(rand.NewSource(int64(h.Sum64())))}
}

// NoopShuffler keeps the pool order as-is. Promotion rounds use it so that
// pairing follows prior-position classes; tests use it for determinism.
type NoopShuffler struct{}

func (NoopShuffler) Shuffle(int, func(i, j int)) {}
func (NoopShuffler) Intn(int) int                { return 0 }
