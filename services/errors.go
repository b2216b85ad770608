package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Mutwiricris/cuesports-engine/models"
)

// Общие ошибки сервисного слоя, используемые в маппинге HTTP.
var (
	// Ресурсы
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrBracketNotFound    = errors.New("tournament bracket not found; initialize the tournament first")
	ErrEntityNotFound     = errors.New("entity not found in tournament bracket")

	// Ошибки валидации и бизнес-правил
	ErrInvalidLevel          = errors.New("invalid tournament level")
	ErrNoRegisteredPlayers   = errors.New("tournament has no registered players")
	ErrPlayerMissingEntity   = errors.New("player document is missing the geographic id for this level")
	ErrLevelNotFinalized     = errors.New("previous level is not fully finalized")
	ErrPositionsNotFinalized = errors.New("positions have not been finalized for this entity")
)

// LevelNotFinalizedError carries the entities still blocking a promotion.
type LevelNotFinalizedError struct {
	Level   models.Level
	Pending []string
}

func (e *LevelNotFinalizedError) Error() string {
	return fmt.Sprintf("level %s not finalized: pending entities [%s]", e.Level, strings.Join(e.Pending, ", "))
}

func (e *LevelNotFinalizedError) Unwrap() error { return ErrLevelNotFinalized }
