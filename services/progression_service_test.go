package services

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/Mutwiricris/cuesports-engine/brackets"
	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[string]*models.Tournament
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[t.ID] = t
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

func (r *fakeMatchRepo) UpsertBatch(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		// Та же семантика, что у ON CONFLICT DO NOTHING: повтор не
		// перетирает записанные результаты.
		if _, exists := r.matches[m.ID]; exists {
			continue
		}
		r.matches[m.ID] = m
	}
	return nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID string) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool {
		return m.TournamentID == tournamentID
	}), nil
}

func (r *fakeMatchRepo) ListByEntity(_ context.Context, tournamentID string, level models.Level, entityID string) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool {
		return m.TournamentID == tournamentID && m.TournamentLevel == level && m.EntityID() == entityID
	}), nil
}

func (r *fakeMatchRepo) ListByRound(_ context.Context, tournamentID string, level models.Level, entityID, roundLabel string) ([]*models.Match, error) {
	return r.list(func(m *models.Match) bool {
		return m.TournamentID == tournamentID && m.TournamentLevel == level &&
			m.EntityID() == entityID && m.RoundNumber == roundLabel
	}), nil
}

func (r *fakeMatchRepo) list(keep func(*models.Match) bool) []*models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for _, m := range r.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundNumber != out[j].RoundNumber {
			return out[i].RoundNumber < out[j].RoundNumber
		}
		if out[i].MatchNumber != out[j].MatchNumber {
			return out[i].MatchNumber < out[j].MatchNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type fakeBracketRepo struct {
	mu       sync.Mutex
	brackets map[string]*models.Bracket
}

func (r *fakeBracketRepo) Get(_ context.Context, tournamentID string) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	return b, nil
}

func (r *fakeBracketRepo) Create(_ context.Context, _ repositories.SQLExecutor, b *models.Bracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.brackets[b.TournamentID]; exists {
		return nil
	}
	r.brackets[b.TournamentID] = b
	return nil
}

func (r *fakeBracketRepo) SetRound(_ context.Context, _ repositories.SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, matchIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	b.SetRound(level, entityID, roundLabel, matchIDs)
	return nil
}

func (r *fakeBracketRepo) SetRoundStatus(_ context.Context, _ repositories.SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, status models.RoundStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	b.RoundStatus[models.RoundKey(level, entityID, roundLabel)] = status
	return nil
}

func (r *fakeBracketRepo) SetPositionsOnce(_ context.Context, _ repositories.SQLExecutor, tournamentID string, level models.Level, entityID string, positions *models.EntityPositions) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return false, repositories.ErrBracketNotFound
	}
	if b.Positions[level][entityID] != nil {
		return false, nil
	}
	if b.Positions[level] == nil {
		b.Positions[level] = map[string]*models.EntityPositions{}
	}
	b.Positions[level][entityID] = positions
	return true, nil
}

func (r *fakeBracketRepo) SetEntitySummary(_ context.Context, _ repositories.SQLExecutor, tournamentID string, level models.Level, summary models.EntityBracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.brackets[tournamentID]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	b.SetEntitySummary(level, summary)
	return nil
}

type fixture struct {
	tournaments *fakeTournamentRepo
	matches     *fakeMatchRepo
	brackets    *fakeBracketRepo
	svc         ProgressionService
}

func newFixture(t *models.Tournament, players ...models.Player) *fixture {
	f := &fixture{
		tournaments: &fakeTournamentRepo{tournaments: map[string]*models.Tournament{t.ID: t}},
		matches:     &fakeMatchRepo{matches: map[string]*models.Match{}},
		brackets:    &fakeBracketRepo{brackets: map[string]*models.Bracket{}},
	}
	gen := brackets.NewGenerator(brackets.SeededShufflerFactory)
	f.svc = NewProgressionService(
		nil,
		f.tournaments,
		playerRepoWith(players...),
		f.matches,
		f.brackets,
		NewEntityResolver(playerRepoWith(players...)),
		gen,
		brackets.NewStateMachine(gen),
		nil,
		nil,
		nil,
	)
	return f
}

// completeRound marks every open match of the round as won by player 1.
func (f *fixture) completeRound(t *testing.T, tournamentID string, level models.Level, entityID, roundLabel string) {
	t.Helper()
	ms, err := f.matches.ListByRound(context.Background(), tournamentID, level, entityID, roundLabel)
	require.NoError(t, err)
	require.NotEmpty(t, ms, roundLabel)
	for _, m := range ms {
		if m.Completed() {
			continue
		}
		m.Player1Points = 5
		m.Player2Points = 3
		m.Status = models.MatchStatusCompleted
	}
}

func fourPlayerTournament() (*models.Tournament, []models.Player) {
	t := &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1", "p2", "p3", "p4"},
	}
	players := []models.Player{
		{ID: "p1", Name: "P1", CommunityID: "c1"},
		{ID: "p2", Name: "P2", CommunityID: "c1"},
		{ID: "p3", Name: "P3", CommunityID: "c1"},
		{ID: "p4", Name: "P4", CommunityID: "c1"},
	}
	return t, players
}

func TestInitializeTournamentIdempotent(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	res, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, models.LevelCommunity, res.Level)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "c1", res.Entities[0].EntityID)
	assert.Equal(t, "Community_SF", res.Entities[0].RoundLabel)
	assert.Equal(t, 2, res.TotalMatches)

	// Повторная инициализация возвращает уже сохранённый раунд.
	again, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 2, again.TotalMatches)
	assert.Len(t, f.matches.matches, 2)
	for i := range res.Entities[0].Matches {
		assert.Equal(t, res.Entities[0].Matches[i].ID, again.Entities[0].Matches[i].ID)
	}
}

func TestInitializeTournamentUnknown(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)

	_, err := f.svc.InitializeTournament(context.Background(), InitializeTournamentParams{TournamentID: "nope"})
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestNextRoundFourPlayerRunToCompletion(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_SF")
	res, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Community_WF", res.NextRound)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, 2, res.Metadata.TotalMatches)
	assert.Equal(t, 4, res.Metadata.PlayersRemaining)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_WF")
	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_LF")
	res, err = f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Community_F", res.NextRound)
	require.Len(t, res.Matches, 1)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_F")
	res, err = f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.True(t, res.TournamentComplete)
	require.NotNil(t, res.Positions)
	assert.NotNil(t, res.Positions.Position1)
	assert.NotNil(t, res.Positions.Position2)
	assert.NotNil(t, res.Positions.Position3)
	assert.Len(t, res.Positions.EliminatedPlayers, 1)

	pos, err := f.svc.Positions(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.True(t, pos.Completed)
	assert.Equal(t, res.Positions.Position1.ID, pos.Positions.Position1.ID)

	fin, err := f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.True(t, fin.AlreadyFinalized)
}

func TestNextRoundRetryReturnsSameMatches(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)
	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_SF")

	first, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	require.Len(t, first.Matches, 2)

	// Повтор до того, как новый раунд сыгран: переход уже зафиксирован, и
	// клиент получает те же матчи, а не отказ. Пара финалов живёт под двумя
	// метками, обе должны вернуться.
	second, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.Equal(t, first.NextRound, second.NextRound)
	require.Len(t, second.Matches, 2)
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].ID, second.Matches[i].ID)
	}
	assert.Len(t, f.matches.matches, 4)
}

func TestNextRoundThreePlayerSharedLabel(t *testing.T) {
	tour := &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1", "p2", "p3"},
	}
	f := newFixture(tour,
		models.Player{ID: "p1", Name: "P1", CommunityID: "c1"},
		models.Player{ID: "p2", Name: "P2", CommunityID: "c1"},
		models.Player{ID: "p3", Name: "P3", CommunityID: "c1"},
	)
	ctx := context.Background()

	res, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "Community_Final", res.Entities[0].RoundLabel)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_Final")
	first, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	require.Len(t, first.Matches, 1)
	assert.Equal(t, models.MatchTypeThreePlayerFinal, first.Matches[0].MatchType)

	// Финал позиций 2/3 делит метку раунда с начальным матчем; повтор до
	// его завершения возвращает тот же матч.
	second, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	require.Len(t, second.Matches, 1)
	assert.Equal(t, first.Matches[0].ID, second.Matches[0].ID)

	// Оба матча остаются в списке раунда.
	assert.Len(t, f.brackets.brackets["t1"].RoundMatchIDs(models.LevelCommunity, "c1", "Community_Final"), 2)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_Final")
	done, err := f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.True(t, done.TournamentComplete)
	require.NotNil(t, done.Positions)
	assert.NotNil(t, done.Positions.Position3)
}

func TestInitializeTournamentPersistsOverrides(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{
		TournamentID:         "t1",
		SchedulingPreference: models.SchedulingFullWeek,
	})
	require.NoError(t, err)

	// Переопределение из запроса становится конфигурацией турнира, а не
	// эффектом одного вызова.
	stored, err := f.tournaments.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.SchedulingFullWeek, stored.SchedulingPreference)
}

func TestNextRoundUnknownEntity(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	_, err = f.svc.NextRound(ctx, "t1", models.LevelCommunity, "c99")
	assert.ErrorIs(t, err, ErrEntityNotFound)

	_, err = f.svc.NextRound(ctx, "t1", models.LevelCommunity, "")
	assert.ErrorIs(t, err, brackets.ErrInvalidInput)
}

func TestFinalizeWriteOnce(t *testing.T) {
	tour := &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"p1", "p2"},
	}
	f := newFixture(tour,
		models.Player{ID: "p1", Name: "P1", CommunityID: "c1"},
		models.Player{ID: "p2", Name: "P2", CommunityID: "c1"},
	)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)
	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_F")

	first, err := f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.False(t, first.AlreadyFinalized)
	require.NotNil(t, first.Positions.Position1)
	require.NotNil(t, first.Positions.Position2)
	assert.Nil(t, first.Positions.Position3)

	second, err := f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyFinalized)
	assert.Equal(t, first.Positions.Position1.ID, second.Positions.Position1.ID)
}

func TestFinalizeBeforeRoundComplete(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c1")
	assert.ErrorIs(t, err, brackets.ErrMissingPositioningMatches)
}

func TestInitializeLevelGatedThenPromotes(t *testing.T) {
	tour := &models.Tournament{
		ID:                  "t1",
		HierarchicalLevel:   models.LevelCommunity,
		RegisteredPlayerIDs: []string{"q1", "q2", "q3", "q4"},
	}
	f := newFixture(tour,
		models.Player{ID: "q1", Name: "Q1", CommunityID: "c1", CountyID: "k1"},
		models.Player{ID: "q2", Name: "Q2", CommunityID: "c1", CountyID: "k1"},
		models.Player{ID: "q3", Name: "Q3", CommunityID: "c2", CountyID: "k1"},
		models.Player{ID: "q4", Name: "Q4", CommunityID: "c2", CountyID: "k1"},
	)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	f.completeRound(t, "t1", models.LevelCommunity, "c1", "Community_F")
	_, err = f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c1")
	require.NoError(t, err)

	// c2 ещё играет: продвижение заблокировано.
	_, err = f.svc.InitializeLevel(ctx, "t1", models.LevelCounty, nil)
	var notFinalized *LevelNotFinalizedError
	require.ErrorAs(t, err, &notFinalized)
	assert.Equal(t, []string{"c2"}, notFinalized.Pending)

	f.completeRound(t, "t1", models.LevelCommunity, "c2", "Community_F")
	_, err = f.svc.Finalize(ctx, "t1", models.LevelCommunity, "c2")
	require.NoError(t, err)

	res, err := f.svc.InitializeLevel(ctx, "t1", models.LevelCounty, nil)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "k1", res.Entities[0].EntityID)
	require.Len(t, res.Entities[0].Matches, 2)

	bracket := f.brackets.brackets["t1"]
	pos1 := map[string]bool{
		bracket.Positions[models.LevelCommunity]["c1"].Position1.ID: true,
		bracket.Positions[models.LevelCommunity]["c2"].Position1.ID: true,
	}
	// Пары по классам позиций: победители против победителей.
	sf1 := res.Entities[0].Matches[0]
	assert.True(t, pos1[sf1.Player1ID], sf1.Player1ID)
	assert.True(t, pos1[sf1.Player2ID], sf1.Player2ID)
}

func TestTournamentMatches(t *testing.T) {
	tour, players := fourPlayerTournament()
	f := newFixture(tour, players...)
	ctx := context.Background()

	_, err := f.svc.InitializeTournament(ctx, InitializeTournamentParams{TournamentID: "t1"})
	require.NoError(t, err)

	ms, err := f.svc.TournamentMatches(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, ms, 2)
}
