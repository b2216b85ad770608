package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Mutwiricris/cuesports-engine/brackets"
	"github.com/Mutwiricris/cuesports-engine/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}

func badRequestResponse(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, jsonResponse{"success": false, "error": err.Error()})
}

func serverErrorResponse(w http.ResponseWriter, err error) {
	slog.Error("internal server error", slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, jsonResponse{
		"success": false,
		"error":   "the server encountered a problem and could not process your request",
	})
}

// domainErrorResponse — доменные ошибки прогрессии не являются HTTP-сбоями:
// клиент получает 200 и success=false с человеческим текстом.
func domainErrorResponse(w http.ResponseWriter, err error, extra jsonResponse) {
	env := jsonResponse{"success": false, "error": err.Error()}
	for k, v := range extra {
		env[k] = v
	}
	writeJSON(w, http.StatusOK, env)
}

// mapServiceErrorToHTTP routes an error to one of the three response classes:
// 200/success=false for domain conditions, 400 for malformed input, 500 for
// everything unexpected.
func mapServiceErrorToHTTP(w http.ResponseWriter, err error) {
	var incomplete *brackets.IncompleteRoundError
	var notFinalized *services.LevelNotFinalizedError

	switch {
	case errors.As(err, &incomplete):
		domainErrorResponse(w, err, jsonResponse{
			"round":              incomplete.Round,
			"incompleteMatchIds": incomplete.Incomplete,
			"completedCount":     incomplete.Completed,
			"totalCount":         incomplete.Total,
		})

	case errors.As(err, &notFinalized):
		domainErrorResponse(w, err, jsonResponse{
			"level":           notFinalized.Level,
			"pendingEntities": notFinalized.Pending,
		})

	case errors.Is(err, brackets.ErrPreviousRoundIncomplete),
		errors.Is(err, brackets.ErrNoWinnersFound),
		errors.Is(err, brackets.ErrTieUndecidable),
		errors.Is(err, brackets.ErrMissingPositioningMatches),
		errors.Is(err, brackets.ErrInsufficientPlayers),
		errors.Is(err, brackets.ErrDuplicatePlayer),
		errors.Is(err, brackets.ErrUnexpectedPoolSize),
		errors.Is(err, brackets.ErrUndecided),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrBracketNotFound),
		errors.Is(err, services.ErrEntityNotFound),
		errors.Is(err, services.ErrNoRegisteredPlayers),
		errors.Is(err, services.ErrPlayerMissingEntity),
		errors.Is(err, services.ErrLevelNotFinalized),
		errors.Is(err, services.ErrPositionsNotFinalized):
		domainErrorResponse(w, err, nil)

	case errors.Is(err, brackets.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidLevel):
		badRequestResponse(w, err)

	default:
		serverErrorResponse(w, err)
	}
}
