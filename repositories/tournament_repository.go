package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mutwiricris/cuesports-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

// TournamentRepository reads the tournament configuration document
// (tournaments/<id>). The document is stored as-is so that both historical
// spellings of the registered players field survive the round trip; parsing
// happens in models.Tournament.
type TournamentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	Upsert(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM tournaments WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}

	var t models.Tournament
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("failed to decode tournament %s: %w", id, err)
	}
	if t.ID == "" {
		t.ID = id
	}
	return &t, nil
}

func (r *postgresTournamentRepository) Upsert(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode tournament %s: %w", t.ID, err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO tournaments (id, doc)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		t.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament %s: %w", t.ID, err)
	}
	return nil
}
