package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/lib/pq"
)

var ErrBracketNotFound = errors.New("bracket not found")

// BracketRepository maintains the single bracket document per tournament
// (tournament_brackets/<tournamentId>). Writes are partial jsonb updates so
// that concurrent per-entity progressions never clobber each other's rounds.
type BracketRepository interface {
	Get(ctx context.Context, tournamentID string) (*models.Bracket, error)
	// Create inserts the initial document. Re-initialization is a no-op so
	// the call is safe to retry.
	Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error
	// SetRound writes the ordered match id list for one round and marks the
	// round in progress.
	SetRound(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, matchIDs []string) error
	SetRoundStatus(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, status models.RoundStatus) error
	// SetPositionsOnce writes the finalized positions for an entity unless a
	// value is already present. Returns true when this call performed the
	// write; false when positions had been finalized earlier.
	SetPositionsOnce(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID string, positions *models.EntityPositions) (bool, error)
	SetEntitySummary(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, summary models.EntityBracket) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) Get(ctx context.Context, tournamentID string) (*models.Bracket, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM tournament_brackets WHERE tournament_id = $1`, tournamentID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to load bracket for %s: %w", tournamentID, err)
	}

	var b models.Bracket
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bracket for %s: %w", tournamentID, err)
	}
	return &b, nil
}

func (r *postgresBracketRepository) Create(ctx context.Context, exec SQLExecutor, b *models.Bracket) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bracket for %s: %w", b.TournamentID, err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO tournament_brackets (tournament_id, doc)
		VALUES ($1, $2)
		ON CONFLICT (tournament_id) DO NOTHING`,
		b.TournamentID, doc,
	)
	if err != nil {
		return fmt.Errorf("failed to create bracket for %s: %w", b.TournamentID, err)
	}
	return nil
}

// SetRound выполняет три вложенных jsonb_set: сначала гарантирует контейнеры
// rounds.<level> и rounds.<level>.<entity>, затем пишет список матчей.
func (r *postgresBracketRepository) SetRound(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, matchIDs []string) error {
	ids, err := json.Marshal(matchIDs)
	if err != nil {
		return fmt.Errorf("failed to encode match ids for round %s: %w", roundLabel, err)
	}

	levelPath := []string{"rounds", string(level)}
	entityPath := []string{"rounds", string(level), entityID}
	roundPath := []string{"rounds", string(level), entityID, roundLabel}
	statusPath := []string{"roundStatus", models.RoundKey(level, entityID, roundLabel)}

	result, err := exec.ExecContext(ctx, `
		UPDATE tournament_brackets SET doc =
			jsonb_set(
				jsonb_set(
					jsonb_set(
						jsonb_set(
							jsonb_set(doc, $2::text[], COALESCE(doc #> $2::text[], '{}'::jsonb)),
							$3::text[], COALESCE(doc #> $3::text[], '{}'::jsonb)),
						$4::text[], $5::jsonb),
					$6::text[], $7::jsonb),
				'{lastUpdated}', $8::jsonb)
		WHERE tournament_id = $1`,
		tournamentID,
		pq.Array(levelPath), pq.Array(entityPath),
		pq.Array(roundPath), ids,
		pq.Array(statusPath), jsonString(string(models.RoundInProgress)),
		jsonString(time.Now().UTC().Format(time.RFC3339Nano)),
	)
	if err != nil {
		return fmt.Errorf("failed to set round %s for %s: %w", roundLabel, tournamentID, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

func (r *postgresBracketRepository) SetRoundStatus(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID, roundLabel string, status models.RoundStatus) error {
	statusPath := []string{"roundStatus", models.RoundKey(level, entityID, roundLabel)}
	result, err := exec.ExecContext(ctx, `
		UPDATE tournament_brackets SET doc =
			jsonb_set(
				jsonb_set(doc, $2::text[], $3::jsonb),
				'{lastUpdated}', $4::jsonb)
		WHERE tournament_id = $1`,
		tournamentID,
		pq.Array(statusPath), jsonString(string(status)),
		jsonString(time.Now().UTC().Format(time.RFC3339Nano)),
	)
	if err != nil {
		return fmt.Errorf("failed to set round status %s for %s: %w", roundLabel, tournamentID, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

// SetPositionsOnce — позиции пишутся один раз; повторная финализация не
// перезаписывает их (doc #> path IS NULL в WHERE).
func (r *postgresBracketRepository) SetPositionsOnce(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, entityID string, positions *models.EntityPositions) (bool, error) {
	doc, err := json.Marshal(positions)
	if err != nil {
		return false, fmt.Errorf("failed to encode positions for %s/%s: %w", level, entityID, err)
	}

	levelPath := []string{"positions", string(level)}
	entityPath := []string{"positions", string(level), entityID}

	result, err := exec.ExecContext(ctx, `
		UPDATE tournament_brackets SET doc =
			jsonb_set(
				jsonb_set(
					jsonb_set(doc, $2::text[], COALESCE(doc #> $2::text[], '{}'::jsonb)),
					$3::text[], $4::jsonb),
				'{lastUpdated}', $5::jsonb)
		WHERE tournament_id = $1 AND doc #> $3::text[] IS NULL`,
		tournamentID,
		pq.Array(levelPath), pq.Array(entityPath), doc,
		jsonString(time.Now().UTC().Format(time.RFC3339Nano)),
	)
	if err != nil {
		return false, fmt.Errorf("failed to set positions for %s/%s: %w", level, entityID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresBracketRepository) SetEntitySummary(ctx context.Context, exec SQLExecutor, tournamentID string, level models.Level, summary models.EntityBracket) error {
	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode entity summary %s: %w", summary.EntityID, err)
	}

	levelPath := []string{"bracketLevels", string(level)}
	entityPath := []string{"bracketLevels", string(level), summary.EntityID}

	result, err := exec.ExecContext(ctx, `
		UPDATE tournament_brackets SET doc =
			jsonb_set(
				jsonb_set(
					jsonb_set(doc, $2::text[], COALESCE(doc #> $2::text[], '{}'::jsonb)),
					$3::text[], $4::jsonb),
				'{lastUpdated}', $5::jsonb)
		WHERE tournament_id = $1`,
		tournamentID,
		pq.Array(levelPath), pq.Array(entityPath), doc,
		jsonString(time.Now().UTC().Format(time.RFC3339Nano)),
	)
	if err != nil {
		return fmt.Errorf("failed to set entity summary %s for %s: %w", summary.EntityID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrBracketNotFound)
}

// jsonString quotes a value as a jsonb string literal for jsonb_set.
func jsonString(v string) string {
	data, _ := json.Marshal(v)
	return string(data)
}
