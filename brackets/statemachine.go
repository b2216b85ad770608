package brackets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// StateMachine decides, per (tournament, level, entity), what the next round
// is — or that progression is terminal — purely from the multiset of
// persisted matches. Given the same persisted state it always produces the
// same decision, which is what makes the endpoints idempotent under retry.
type StateMachine struct {
	gen *Generator
}

func NewStateMachine(gen *Generator) *StateMachine {
	return &StateMachine{gen: gen}
}

// Decision is the outcome of one Advance call.
type Decision struct {
	CurrentRound string
	NextRound    string
	// Matches are the newly generated matches for NextRound. Empty when
	// Terminal.
	Matches  []*models.Match
	Terminal bool
}

// DetectCurrentRound recomputes the actual current round from persisted
// matches. Any round label supplied by a caller is only a hint: the machine
// trusts the highest-ranked label whose matches are all completed, so a
// retried call lands on the same round and regenerates the same successors.
// When no round is complete yet the lowest label present is reported, so the
// caller is told which entry-round matches are still open.
func DetectCurrentRound(all []*models.Match) string {
	current := ""
	best := -1
	for label, group := range groupByRound(all) {
		if !allCompleted(group) {
			continue
		}
		if r := LabelRank(label); r > best {
			best = r
			current = label
		}
	}
	if current != "" {
		return current
	}
	lowest := -1
	for _, m := range all {
		if r := LabelRank(m.RoundNumber); lowest == -1 || r < lowest {
			lowest = r
			current = m.RoundNumber
		}
	}
	return current
}

// Advance inspects the entity's matches and either generates the next set
// of matches or reports a terminal state. A round that was already generated
// but not yet scored is reproduced with the same deterministic ids, so
// retries converge. Only when the current round itself has open matches is
// the decision refused, with the list of open match ids (byes count as
// completed).
func (sm *StateMachine) Advance(tournamentID string, level models.Level, entityID string, all []*models.Match) (*Decision, error) {
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: entity %s has no matches; initialize the level first", ErrInvalidInput, entityID)
	}

	byRound := groupByRound(all)
	current := DetectCurrentRound(all)
	group := byRound[current]

	// The winners and losers finals are separate labels generated together;
	// both gate the grand final.
	if current == WinnersFinalLabel(level) || current == LosersFinalLabel(level) {
		return sm.advanceFromFinalsPair(tournamentID, level, entityID, byRound)
	}

	// Terminal: a completed level final of any flavor ends progression.
	for _, m := range group {
		if m.IsLevelFinal || m.NormalizedType() == models.MatchTypeAutoAdvancement {
			if m.Completed() {
				return &Decision{CurrentRound: current, Terminal: true}, nil
			}
		}
	}

	// Three-player regime: the positions 2/3 final follows the completed
	// initial. First-round pools keep both matches under one label, so an
	// already generated but unscored final can sit in the same group;
	// regenerating it is safe, ids are deterministic and the persisted match
	// stays authoritative.
	if initial := findByType(group, models.MatchTypeThreePlayerInitial); initial != nil && initial.Completed() {
		final, err := sm.gen.ThreePlayerFinal(tournamentID, level, entityID, initial)
		if err != nil {
			return nil, err
		}
		return &Decision{CurrentRound: current, NextRound: final.RoundNumber, Matches: []*models.Match{final}}, nil
	}

	if err := requireComplete(current, group); err != nil {
		return nil, err
	}

	// Four-player regime: both semi-finals complete, open the winners and
	// losers finals.
	if semis := filterByType(group, models.MatchTypeSemiFinal); len(semis) > 0 {
		if len(semis) != 2 {
			return nil, fmt.Errorf("%w: expected 2 semi-finals, found %d", ErrMissingPositioningMatches, len(semis))
		}
		sortByNumber(semis)
		matches, err := sm.gen.WinnersAndLosersFinals(tournamentID, level, entityID, semis[0], semis[1])
		if err != nil {
			return nil, err
		}
		return &Decision{CurrentRound: current, NextRound: matches[0].RoundNumber, Matches: matches}, nil
	}

	// Ordinary elimination round: count the winners and pick the next label.
	n, ok := ParseEliminationRound(current)
	if !ok {
		return nil, fmt.Errorf("%w: cannot advance from round %q", ErrInvalidInput, current)
	}
	return sm.advanceFromElimination(tournamentID, level, entityID, n, group)
}

func (sm *StateMachine) advanceFromFinalsPair(tournamentID string, level models.Level, entityID string, byRound map[string][]*models.Match) (*Decision, error) {
	wfGroup := byRound[WinnersFinalLabel(level)]
	lfGroup := byRound[LosersFinalLabel(level)]
	if len(wfGroup) == 0 || len(lfGroup) == 0 {
		return nil, fmt.Errorf("%w: winners/losers finals pair incomplete", ErrMissingPositioningMatches)
	}
	pair := append(append([]*models.Match{}, wfGroup...), lfGroup...)
	if err := requireComplete(WinnersFinalLabel(level), pair); err != nil {
		return nil, err
	}
	final, err := sm.gen.GrandFinal(tournamentID, level, entityID, wfGroup[0], lfGroup[0])
	if err != nil {
		return nil, err
	}
	return &Decision{
		CurrentRound: WinnersFinalLabel(level),
		NextRound:    final.RoundNumber,
		Matches:      []*models.Match{final},
	}, nil
}

func (sm *StateMachine) advanceFromElimination(tournamentID string, level models.Level, entityID string, round int, group []*models.Match) (*Decision, error) {
	winners, err := roundWinners(group)
	if err != nil {
		return nil, err
	}

	current := EliminationLabel(round)
	var matches []*models.Match
	switch {
	case len(winners) == 0:
		return nil, fmt.Errorf("%w: round %s produced no winners", ErrNoWinnersFound, current)

	case len(winners) == 1:
		// Reachable only if winner counting drifted around odd buckets.
		// Refuse rather than fabricate a match.
		return nil, fmt.Errorf("%w: single winner after %s, expected a final pairing", ErrNoWinnersFound, current)

	case len(winners) == 2:
		final, ferr := sm.gen.DirectFinal(tournamentID, level, entityID, winners[0], winners[1])
		if ferr != nil {
			return nil, ferr
		}
		matches = []*models.Match{final}

	case len(winners) <= 4:
		matches, err = sm.gen.GenerateRound(RoundRequest{
			TournamentID: tournamentID,
			Level:        level,
			EntityID:     entityID,
			Pool:         winners,
			FirstRound:   false,
		})
		if err != nil {
			return nil, err
		}

	default:
		pool := winners
		if len(pool)%2 == 1 {
			if best, ok := bestLoser(group, winners); ok {
				pool = append(pool, best)
			}
		}
		matches, err = sm.gen.GenerateRound(RoundRequest{
			TournamentID: tournamentID,
			Level:        level,
			EntityID:     entityID,
			RoundLabel:   EliminationLabel(round + 1),
			Pool:         pool,
			FirstRound:   false,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Decision{CurrentRound: current, NextRound: matches[0].RoundNumber, Matches: matches}, nil
}

// roundWinners derives the advancing players from a completed round, in
// match order. Double-duty rounds can yield the same player twice; the
// duplicate is dropped.
func roundWinners(group []*models.Match) ([]models.Player, error) {
	sorted := append([]*models.Match{}, group...)
	sortByNumber(sorted)

	winners := make([]models.Player, 0, len(sorted))
	seen := map[string]struct{}{}
	for _, m := range sorted {
		w, err := WinnerOf(m)
		if err != nil {
			// Equal points leave the match undecided, which means the round
			// is not complete yet (invariant: ties block progression).
			return nil, &IncompleteRoundError{Round: m.RoundNumber, Incomplete: []string{m.ID}, Completed: len(sorted) - 1, Total: len(sorted)}
		}
		if _, dup := seen[w.ID]; dup {
			continue
		}
		seen[w.ID] = struct{}{}
		winners = append(winners, w)
	}
	return winners, nil
}

// bestLoser ranks the losers of the round by total points, then average
// points per match, then lexicographic name, and returns the best one.
func bestLoser(group []*models.Match, winners []models.Player) (models.Player, bool) {
	advanced := make(map[string]struct{}, len(winners))
	for _, w := range winners {
		advanced[w.ID] = struct{}{}
	}

	type tally struct {
		player  models.Player
		total   int
		matches int
	}
	tallies := map[string]*tally{}
	record := func(p models.Player) {
		if p.ID == "" || p.ID == models.ByePlayerID {
			return
		}
		t, ok := tallies[p.ID]
		if !ok {
			t = &tally{player: p}
			tallies[p.ID] = t
		}
		t.total += p.Points
		t.matches++
	}
	for _, m := range group {
		loser, err := LoserOf(m)
		if err != nil {
			continue
		}
		record(loser)
	}

	candidates := make([]*tally, 0, len(tallies))
	for id, t := range tallies {
		if _, won := advanced[id]; won {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return models.Player{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.total != b.total {
			return a.total > b.total
		}
		avgA := float64(a.total) / float64(a.matches)
		avgB := float64(b.total) / float64(b.matches)
		if avgA != avgB {
			return avgA > avgB
		}
		return strings.Compare(a.player.Name, b.player.Name) < 0
	})
	best := candidates[0].player
	best.Points = 0
	return best, true
}

func allCompleted(group []*models.Match) bool {
	for _, m := range group {
		if !m.Completed() {
			return false
		}
	}
	return true
}

func requireComplete(round string, group []*models.Match) error {
	var incomplete []string
	completed := 0
	for _, m := range group {
		if m.Completed() {
			completed++
		} else {
			incomplete = append(incomplete, m.ID)
		}
	}
	if len(incomplete) > 0 {
		return &IncompleteRoundError{
			Round:      round,
			Incomplete: incomplete,
			Completed:  completed,
			Total:      len(group),
		}
	}
	return nil
}

func groupByRound(all []*models.Match) map[string][]*models.Match {
	out := map[string][]*models.Match{}
	for _, m := range all {
		out[m.RoundNumber] = append(out[m.RoundNumber], m)
	}
	return out
}

func findByType(group []*models.Match, t models.MatchType) *models.Match {
	for _, m := range group {
		if m.NormalizedType() == t {
			return m
		}
	}
	return nil
}

func filterByType(group []*models.Match, t models.MatchType) []*models.Match {
	var out []*models.Match
	for _, m := range group {
		if m.NormalizedType() == t {
			out = append(out, m)
		}
	}
	return out
}

func sortByNumber(ms []*models.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].MatchNumber != ms[j].MatchNumber {
			return ms[i].MatchNumber < ms[j].MatchNumber
		}
		return ms[i].ID < ms[j].ID
	})
}
