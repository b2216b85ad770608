package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRepository persists one document per match
// (tournaments/<id>/matches/<matchId>). Level, entity, round and status are
// lifted into columns for querying; the document remains the source of
// truth for the full shape.
type MatchRepository interface {
	UpsertBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error)
	ListByEntity(ctx context.Context, tournamentID string, level models.Level, entityID string) ([]*models.Match, error)
	ListByRound(ctx context.Context, tournamentID string, level models.Level, entityID, roundLabel string) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

// UpsertBatch inserts generated matches. Ids are deterministic, so a retried
// generation hits the conflict path; DO NOTHING keeps any results already
// recorded on the existing documents.
func (r *postgresMatchRepository) UpsertBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	const query = `
		INSERT INTO matches (tournament_id, id, level, entity_id, round_label, status, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, id) DO NOTHING`

	for _, m := range matches {
		doc, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode match %s: %w", m.ID, err)
		}
		if _, err := exec.ExecContext(ctx, query,
			m.TournamentID, m.ID, m.TournamentLevel, m.EntityID(), m.RoundNumber, m.Status, doc,
		); err != nil {
			return fmt.Errorf("failed to upsert match %s: %w", m.ID, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.Match, error) {
	return r.list(ctx, `
		SELECT doc FROM matches
		WHERE tournament_id = $1
		ORDER BY round_label, (doc->>'matchNumber')::int, id`,
		tournamentID)
}

func (r *postgresMatchRepository) ListByEntity(ctx context.Context, tournamentID string, level models.Level, entityID string) ([]*models.Match, error) {
	return r.list(ctx, `
		SELECT doc FROM matches
		WHERE tournament_id = $1 AND level = $2 AND entity_id = $3
		ORDER BY round_label, (doc->>'matchNumber')::int, id`,
		tournamentID, level, entityID)
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, tournamentID string, level models.Level, entityID, roundLabel string) ([]*models.Match, error) {
	return r.list(ctx, `
		SELECT doc FROM matches
		WHERE tournament_id = $1 AND level = $2 AND entity_id = $3 AND round_label = $4
		ORDER BY (doc->>'matchNumber')::int, id`,
		tournamentID, level, entityID, roundLabel)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		var m models.Match
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, fmt.Errorf("failed to decode match document: %w", err)
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return out, nil
}
