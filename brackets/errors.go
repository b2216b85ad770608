package brackets

import (
	"errors"
	"fmt"
	"strings"
)

// Ошибки ядра. Сервисный слой пробрасывает их наверх без изменений,
// обработчики переводят в {success:false, error:"..."}.
var (
	ErrInvalidInput              = errors.New("invalid input")
	ErrInsufficientPlayers       = errors.New("not enough players to generate a round")
	ErrDuplicatePlayer           = errors.New("duplicate player in pool")
	ErrUnexpectedPoolSize        = errors.New("unexpected pool size")
	ErrUndecided                 = errors.New("match result undecided")
	ErrPreviousRoundIncomplete   = errors.New("previous round is not complete")
	ErrNoWinnersFound            = errors.New("no winners found for completed round")
	ErrTerminal                  = errors.New("tournament progression is terminal for this entity")
	ErrMissingPositioningMatches = errors.New("positioning matches missing or malformed")
	ErrTieUndecidable            = errors.New("tie on decisive match cannot be resolved")
)

// IncompleteRoundError carries the detail the endpoint contract requires:
// which matches of the round are still open.
type IncompleteRoundError struct {
	Round      string
	Incomplete []string
	Completed  int
	Total      int
}

func (e *IncompleteRoundError) Error() string {
	return fmt.Sprintf("round %s incomplete: %d/%d matches completed, waiting on [%s]",
		e.Round, e.Completed, e.Total, strings.Join(e.Incomplete, ", "))
}

func (e *IncompleteRoundError) Unwrap() error { return ErrPreviousRoundIncomplete }
