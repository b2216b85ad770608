package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mutwiricris/cuesports-engine/brackets"
	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/repositories"
	"golang.org/x/sync/errgroup"
)

// EntityRound is one entity's freshly generated (or re-read) round.
type EntityRound struct {
	EntityID   string          `json:"entityId"`
	RoundLabel string          `json:"roundLabel"`
	Matches    []*models.Match `json:"matches"`
}

type InitializeResult struct {
	TournamentID string        `json:"tournamentId"`
	Level        models.Level  `json:"level"`
	Entities     []EntityRound `json:"entities"`
	TotalMatches int           `json:"totalMatches"`
}

// RoundMetadata mirrors what bracket UIs expect alongside next-round matches.
type RoundMetadata struct {
	TotalMatches     int    `json:"totalMatches"`
	PlayersRemaining int    `json:"playersRemaining"`
	RoundType        string `json:"roundType"`
}

type NextRoundResult struct {
	TournamentComplete bool
	CurrentRound       string
	NextRound          string
	Matches            []*models.Match
	Positions          *models.EntityPositions
	Metadata           *RoundMetadata
}

type FinalizeResult struct {
	Level            models.Level
	EntityID         string
	Positions        *models.EntityPositions
	AlreadyFinalized bool
}

type PositionsResult struct {
	Completed bool
	Positions *models.EntityPositions
}

// InitializeTournamentParams carries request-level overrides on top of the
// persisted tournament configuration.
type InitializeTournamentParams struct {
	TournamentID         string
	Special              *bool
	Level                models.Level
	SchedulingPreference models.SchedulingPreference
}

// ProgressionService is the coordinator: it reads persisted state, lets the
// pure core decide, and commits the decision transactionally. Per (level,
// entity) calls are serialized by the caller's usage pattern; across entities
// everything runs in parallel.
type ProgressionService interface {
	InitializeTournament(ctx context.Context, params InitializeTournamentParams) (*InitializeResult, error)
	InitializeLevel(ctx context.Context, tournamentID string, level models.Level, entityIDs []string) (*InitializeResult, error)
	NextRound(ctx context.Context, tournamentID string, level models.Level, entityID string) (*NextRoundResult, error)
	Finalize(ctx context.Context, tournamentID string, level models.Level, entityID string) (*FinalizeResult, error)
	Positions(ctx context.Context, tournamentID string, level models.Level, entityID string) (*PositionsResult, error)
	TournamentMatches(ctx context.Context, tournamentID string) ([]*models.Match, error)
	Ping(ctx context.Context) error
}

type progressionService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	matchRepo      repositories.MatchRepository
	bracketRepo    repositories.BracketRepository

	resolver EntityResolver
	gen      *brackets.Generator
	machine  *brackets.StateMachine

	hub       *brackets.Hub
	snapshots *SnapshotExporter
	logger    *slog.Logger
}

func NewProgressionService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	resolver EntityResolver,
	gen *brackets.Generator,
	machine *brackets.StateMachine,
	hub *brackets.Hub,
	snapshots *SnapshotExporter,
	logger *slog.Logger,
) ProgressionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &progressionService{
		db:             db,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		bracketRepo:    bracketRepo,
		resolver:       resolver,
		gen:            gen,
		machine:        machine,
		hub:            hub,
		snapshots:      snapshots,
		logger:         logger,
	}
}

func (s *progressionService) InitializeTournament(ctx context.Context, params InitializeTournamentParams) (*InitializeResult, error) {
	tournamentID := params.TournamentID
	t, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	stored := *t
	if params.Special != nil && *params.Special {
		t.Special = true
		t.HierarchicalLevel = models.LevelSpecial
	}
	if params.Level != "" {
		if !params.Level.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, params.Level)
		}
		t.HierarchicalLevel = params.Level
	}
	if params.SchedulingPreference != "" {
		t.SchedulingPreference = params.SchedulingPreference
	}
	level := t.HierarchicalLevel

	// Request overrides become the tournament's configuration; without the
	// write-back a later call would silently fall back to the stored values.
	if t.Special != stored.Special || t.HierarchicalLevel != stored.HierarchicalLevel || t.SchedulingPreference != stored.SchedulingPreference {
		if err := s.tournamentRepo.Upsert(ctx, s.db, t); err != nil {
			return nil, err
		}
	}

	bracket, err := s.bracketRepo.Get(ctx, tournamentID)
	if errors.Is(err, repositories.ErrBracketNotFound) {
		bracket = models.NewBracket(tournamentID, level, t.ParticipantScope)
		if err := s.bracketRepo.Create(ctx, s.db, bracket); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	pools, err := s.resolver.ResolveInitialPools(ctx, t)
	if err != nil {
		return nil, err
	}

	result, err := s.initializeEntities(ctx, t, bracket, level, pools, false)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "tournament initialized",
		slog.String("tournament_id", tournamentID),
		slog.String("level", string(level)),
		slog.Int("entities", len(result.Entities)),
		slog.Int("matches", result.TotalMatches))
	return result, nil
}

func (s *progressionService) InitializeLevel(ctx context.Context, tournamentID string, level models.Level, entityIDs []string) (*InitializeResult, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	t, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	bracket, err := s.loadBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	pools, err := s.resolver.ResolvePromotionPools(ctx, bracket, level)
	if err != nil {
		return nil, err
	}
	if len(entityIDs) > 0 {
		pools, err = filterPools(pools, entityIDs)
		if err != nil {
			return nil, err
		}
	}

	// Продвижение не перемешивает пул: порядок по классам позиций обязан
	// дожить до пар.
	result, err := s.initializeEntities(ctx, t, bracket, level, pools, true)
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, brackets.EventLevelInitialized, map[string]interface{}{
		"level":    level,
		"entities": len(result.Entities),
	})
	s.logger.InfoContext(ctx, "level initialized",
		slog.String("tournament_id", tournamentID),
		slog.String("level", string(level)),
		slog.Int("entities", len(result.Entities)),
		slog.Int("matches", result.TotalMatches))
	return result, nil
}

func (s *progressionService) initializeEntities(ctx context.Context, t *models.Tournament, bracket *models.Bracket, level models.Level, pools []EntityPool, preserveOrder bool) (*InitializeResult, error) {
	rounds := make([]EntityRound, len(pools))

	g, gCtx := errgroup.WithContext(ctx)
	for i, pool := range pools {
		i, pool := i, pool
		g.Go(func() error {
			round, err := s.initializeEntity(gCtx, t, bracket, level, pool, preserveOrder)
			if err != nil {
				return fmt.Errorf("entity %s: %w", pool.EntityID, err)
			}
			rounds[i] = *round
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range rounds {
		total += len(r.Matches)
	}
	return &InitializeResult{
		TournamentID: t.ID,
		Level:        level,
		Entities:     rounds,
		TotalMatches: total,
	}, nil
}

// initializeEntity generates the entry round for one entity. Regeneration is
// safe: ids are deterministic and if the bracket already lists the round, the
// persisted matches are returned untouched.
func (s *progressionService) initializeEntity(ctx context.Context, t *models.Tournament, bracket *models.Bracket, level models.Level, pool EntityPool, preserveOrder bool) (*EntityRound, error) {
	matches, err := s.gen.GenerateRound(brackets.RoundRequest{
		TournamentID:  t.ID,
		Level:         level,
		EntityID:      pool.EntityID,
		RoundLabel:    brackets.EliminationLabel(1),
		Pool:          pool.Players,
		FirstRound:    true,
		PreserveOrder: preserveOrder,
	})
	if err != nil {
		return nil, err
	}
	label := matches[0].RoundNumber

	if ids := bracket.RoundMatchIDs(level, pool.EntityID, label); len(ids) > 0 {
		existing, err := s.matchRepo.ListByRound(ctx, t.ID, level, pool.EntityID, label)
		if err != nil {
			return nil, err
		}
		if persisted, ok := persistedMatches(existing, matches); ok {
			return &EntityRound{EntityID: pool.EntityID, RoundLabel: label, Matches: persisted}, nil
		}
	}

	brackets.AnnotateSchedule(matches, t.SchedulingPreference)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.matchRepo.UpsertBatch(ctx, tx, matches); err != nil {
			return err
		}
		if err := s.bracketRepo.SetRound(ctx, tx, t.ID, level, pool.EntityID, label, matchIDs(matches)); err != nil {
			return err
		}
		return s.bracketRepo.SetEntitySummary(ctx, tx, t.ID, level, models.EntityBracket{
			EntityID:     pool.EntityID,
			CurrentRound: label,
			PlayersCount: len(pool.Players),
			Status:       models.EntityActive,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(t.ID, brackets.EventRoundGenerated, map[string]interface{}{
		"level":      level,
		"entityId":   pool.EntityID,
		"roundLabel": label,
		"matchIds":   matchIDs(matches),
	})
	return &EntityRound{EntityID: pool.EntityID, RoundLabel: label, Matches: matches}, nil
}

func (s *progressionService) NextRound(ctx context.Context, tournamentID string, level models.Level, entityID string) (*NextRoundResult, error) {
	entityID, err := normalizeEntityID(level, entityID)
	if err != nil {
		return nil, err
	}

	all, err := s.matchRepo.ListByEntity(ctx, tournamentID, level, entityID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s/%s in tournament %s", ErrEntityNotFound, level, entityID, tournamentID)
	}

	decision, err := s.machine.Advance(tournamentID, level, entityID, all)
	if err != nil {
		return nil, err
	}

	if decision.Terminal {
		fin, err := s.Finalize(ctx, tournamentID, level, entityID)
		if err != nil {
			return nil, err
		}
		return &NextRoundResult{
			TournamentComplete: true,
			CurrentRound:       decision.CurrentRound,
			Positions:          fin.Positions,
		}, nil
	}

	// Retried call after a transition already committed: the machine
	// regenerated the same deterministic ids, so the persisted matches are
	// authoritative and the regenerated ones are discarded. The next round
	// can span two labels (winners/losers finals), so the check is by id,
	// not by label.
	if persisted, ok := persistedMatches(all, decision.Matches); ok {
		return s.nextRoundResult(decision, persisted), nil
	}

	t, err := s.loadTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	bracket, err := s.loadBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	brackets.AnnotateSchedule(decision.Matches, t.SchedulingPreference)

	// Three-player first-round pools keep the initial and the positions
	// final under one label; merge instead of overwriting the id list.
	ids := matchIDs(decision.Matches)
	if existing := bracket.RoundMatchIDs(level, entityID, decision.NextRound); len(existing) > 0 {
		ids = mergeIDs(existing, ids)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.matchRepo.UpsertBatch(ctx, tx, decision.Matches); err != nil {
			return err
		}
		if decision.CurrentRound != decision.NextRound {
			if err := s.bracketRepo.SetRoundStatus(ctx, tx, tournamentID, level, entityID, decision.CurrentRound, models.RoundCompleted); err != nil {
				return err
			}
		}
		if err := s.bracketRepo.SetRound(ctx, tx, tournamentID, level, entityID, decision.NextRound, ids); err != nil {
			return err
		}
		return s.bracketRepo.SetEntitySummary(ctx, tx, tournamentID, level, models.EntityBracket{
			EntityID:     entityID,
			CurrentRound: decision.NextRound,
			PlayersCount: distinctPlayers(decision.Matches),
			Status:       models.EntityActive,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, brackets.EventRoundGenerated, map[string]interface{}{
		"level":      level,
		"entityId":   entityID,
		"roundLabel": decision.NextRound,
		"matchIds":   matchIDs(decision.Matches),
	})
	s.logger.InfoContext(ctx, "round advanced",
		slog.String("tournament_id", tournamentID),
		slog.String("level", string(level)),
		slog.String("entity_id", entityID),
		slog.String("from", decision.CurrentRound),
		slog.String("to", decision.NextRound),
		slog.Int("matches", len(decision.Matches)))
	return s.nextRoundResult(decision, decision.Matches), nil
}

func (s *progressionService) nextRoundResult(decision *brackets.Decision, matches []*models.Match) *NextRoundResult {
	roundType := ""
	if len(matches) > 0 {
		roundType = string(matches[0].MatchType)
	}
	return &NextRoundResult{
		CurrentRound: decision.CurrentRound,
		NextRound:    decision.NextRound,
		Matches:      matches,
		Metadata: &RoundMetadata{
			TotalMatches:     len(matches),
			PlayersRemaining: distinctPlayers(matches),
			RoundType:        roundType,
		},
	}
}

func (s *progressionService) Finalize(ctx context.Context, tournamentID string, level models.Level, entityID string) (*FinalizeResult, error) {
	entityID, err := normalizeEntityID(level, entityID)
	if err != nil {
		return nil, err
	}

	bracket, err := s.loadBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if existing := bracket.EntityPositionsFor(level, entityID); existing != nil {
		return &FinalizeResult{Level: level, EntityID: entityID, Positions: existing, AlreadyFinalized: true}, nil
	}

	all, err := s.matchRepo.ListByEntity(ctx, tournamentID, level, entityID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s/%s in tournament %s", ErrEntityNotFound, level, entityID, tournamentID)
	}

	positions, err := brackets.DerivePositions(all)
	if err != nil {
		return nil, err
	}

	wrote := false
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		w, err := s.bracketRepo.SetPositionsOnce(ctx, tx, tournamentID, level, entityID, positions)
		if err != nil {
			return err
		}
		wrote = w
		if !wrote {
			return nil
		}
		if positions.LastRoundPlayed != "" {
			if err := s.bracketRepo.SetRoundStatus(ctx, tx, tournamentID, level, entityID, positions.LastRoundPlayed, models.RoundCompleted); err != nil {
				return err
			}
		}
		return s.bracketRepo.SetEntitySummary(ctx, tx, tournamentID, level, models.EntityBracket{
			EntityID:     entityID,
			CurrentRound: positions.LastRoundPlayed,
			PlayersCount: len(positions.Finishers()),
			Status:       models.EntityCompleted,
		})
	})
	if err != nil {
		return nil, err
	}

	if !wrote {
		// Lost the write-once race; the stored positions are authoritative.
		stored, err := s.loadBracket(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if existing := stored.EntityPositionsFor(level, entityID); existing != nil {
			return &FinalizeResult{Level: level, EntityID: entityID, Positions: existing, AlreadyFinalized: true}, nil
		}
		return nil, fmt.Errorf("%w: positions write rejected for %s/%s", ErrBracketNotFound, level, entityID)
	}

	s.broadcast(tournamentID, brackets.EventPositionsFinalized, map[string]interface{}{
		"level":     level,
		"entityId":  entityID,
		"positions": positions,
	})
	if s.snapshots != nil {
		if _, err := s.snapshots.ExportPositions(ctx, tournamentID, level, entityID, positions); err != nil {
			s.logger.WarnContext(ctx, "positions snapshot export failed",
				slog.String("tournament_id", tournamentID),
				slog.String("entity_id", entityID),
				slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "positions finalized",
		slog.String("tournament_id", tournamentID),
		slog.String("level", string(level)),
		slog.String("entity_id", entityID))
	return &FinalizeResult{Level: level, EntityID: entityID, Positions: positions}, nil
}

func (s *progressionService) Positions(ctx context.Context, tournamentID string, level models.Level, entityID string) (*PositionsResult, error) {
	entityID, err := normalizeEntityID(level, entityID)
	if err != nil {
		return nil, err
	}
	bracket, err := s.loadBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	p := bracket.EntityPositionsFor(level, entityID)
	return &PositionsResult{
		Completed: p != nil && p.TournamentComplete,
		Positions: p,
	}, nil
}

func (s *progressionService) TournamentMatches(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

func (s *progressionService) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *progressionService) loadTournament(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTournamentNotFound, tournamentID)
	}
	return t, err
}

func (s *progressionService) loadBracket(ctx context.Context, tournamentID string) (*models.Bracket, error) {
	b, err := s.bracketRepo.Get(ctx, tournamentID)
	if errors.Is(err, repositories.ErrBracketNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBracketNotFound, tournamentID)
	}
	return b, err
}

func (s *progressionService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *progressionService) broadcast(tournamentID, eventType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToTournament(tournamentID, eventType, payload)
}

func normalizeEntityID(level models.Level, entityID string) (string, error) {
	switch level {
	case models.LevelNational:
		return models.NationalEntityID, nil
	case models.LevelSpecial:
		return models.SpecialEntityID, nil
	case models.LevelCommunity, models.LevelCounty, models.LevelRegional:
		if entityID == "" {
			return "", fmt.Errorf("%w: entity id required for level %s", brackets.ErrInvalidInput, level)
		}
		return entityID, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLevel, level)
}

func filterPools(pools []EntityPool, entityIDs []string) ([]EntityPool, error) {
	byID := make(map[string]EntityPool, len(pools))
	for _, p := range pools {
		byID[p.EntityID] = p
	}
	out := make([]EntityPool, 0, len(entityIDs))
	for _, id := range entityIDs {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: no finishers promote into %s", ErrEntityNotFound, id)
		}
		out = append(out, p)
	}
	return out, nil
}

func matchIDs(matches []*models.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// persistedMatches returns the stored counterparts of the generated matches,
// in generation order, when every generated id already exists in stored.
func persistedMatches(stored, generated []*models.Match) ([]*models.Match, bool) {
	byID := make(map[string]*models.Match, len(stored))
	for _, m := range stored {
		byID[m.ID] = m
	}
	out := make([]*models.Match, 0, len(generated))
	for _, g := range generated {
		m, ok := byID[g.ID]
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// mergeIDs appends the ids missing from existing, preserving order.
func mergeIDs(existing, ids []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	out := append([]string{}, existing...)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		out = append(out, id)
	}
	return out
}

func distinctPlayers(matches []*models.Match) int {
	seen := map[string]struct{}{}
	for _, m := range matches {
		for _, id := range []string{m.Player1ID, m.Player2ID} {
			if id == "" || id == models.ByePlayerID {
				continue
			}
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
