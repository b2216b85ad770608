package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mutwiricris/cuesports-engine/brackets"
	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService returns canned results so the tests exercise only the HTTP
// mapping.
type stubService struct {
	nextRound *services.NextRoundResult
	err       error
	pingErr   error
}

func (s *stubService) InitializeTournament(context.Context, services.InitializeTournamentParams) (*services.InitializeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.InitializeResult{TournamentID: "t1", Level: models.LevelCommunity}, nil
}

func (s *stubService) InitializeLevel(context.Context, string, models.Level, []string) (*services.InitializeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.InitializeResult{TournamentID: "t1"}, nil
}

func (s *stubService) NextRound(context.Context, string, models.Level, string) (*services.NextRoundResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.nextRound, nil
}

func (s *stubService) Finalize(context.Context, string, models.Level, string) (*services.FinalizeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.FinalizeResult{Level: models.LevelCommunity, EntityID: "c1"}, nil
}

func (s *stubService) Positions(context.Context, string, models.Level, string) (*services.PositionsResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &services.PositionsResult{}, nil
}

func (s *stubService) TournamentMatches(context.Context, string) ([]*models.Match, error) {
	return nil, s.err
}

func (s *stubService) Ping(context.Context) error { return s.pingErr }

func postJSON(t *testing.T, handler http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return rec, payload
}

func TestNextRoundHandlerResponse(t *testing.T) {
	h := NewProgressionHandler(&stubService{
		nextRound: &services.NextRoundResult{
			CurrentRound: "R1",
			NextRound:    "R2",
			Matches:      []*models.Match{{ID: "R2_COMM_c1_match_1"}},
			Metadata:     &services.RoundMetadata{TotalMatches: 1, PlayersRemaining: 2},
		},
	})

	rec, payload := postJSON(t, h.NextRound(models.LevelCommunity),
		`{"tournamentId": "t1", "communityId": "c1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "R1", payload["currentRound"])
	assert.Equal(t, "R2", payload["nextRound"])
}

func TestNextRoundHandlerTournamentComplete(t *testing.T) {
	h := NewProgressionHandler(&stubService{
		nextRound: &services.NextRoundResult{
			TournamentComplete: true,
			Positions: &models.EntityPositions{
				Position1:          &models.PositionedPlayer{ID: "p1"},
				TournamentComplete: true,
			},
		},
	})

	rec, payload := postJSON(t, h.NextRound(models.LevelCommunity),
		`{"tournamentId": "t1", "communityId": "c1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "tournament_complete", payload["action"])
	assert.NotNil(t, payload["positions"])
}

func TestNextRoundHandlerIncompleteRound(t *testing.T) {
	h := NewProgressionHandler(&stubService{
		err: &brackets.IncompleteRoundError{
			Round:      "R1",
			Incomplete: []string{"R1_COMM_c1_match_2"},
			Completed:  1,
			Total:      2,
		},
	})

	rec, payload := postJSON(t, h.NextRound(models.LevelCommunity),
		`{"tournamentId": "t1", "communityId": "c1"}`)

	// Доменная ошибка — это 200 с success=false, не HTTP-сбой.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "R1", payload["round"])
	assert.Equal(t, float64(1), payload["completedCount"])
	assert.Equal(t, float64(2), payload["totalCount"])
}

func TestNextRoundHandlerBadRequests(t *testing.T) {
	h := NewProgressionHandler(&stubService{})

	rec, payload := postJSON(t, h.NextRound(models.LevelCommunity), `{"bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, payload["success"])

	rec, _ = postJSON(t, h.NextRound(models.LevelCommunity), `{"communityId": "c1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = postJSON(t, h.NextRound(models.LevelCommunity), `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitializeLevelHandlerNotFinalized(t *testing.T) {
	h := NewProgressionHandler(&stubService{
		err: &services.LevelNotFinalizedError{
			Level:   models.LevelCommunity,
			Pending: []string{"c2", "c3"},
		},
	})

	rec, payload := postJSON(t, h.InitializeLevel(models.LevelCounty), `{"tournamentId": "t1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "community", payload["level"])
	assert.Equal(t, []interface{}{"c2", "c3"}, payload["pendingEntities"])
}

func TestFinalizeHandlerInfersLevel(t *testing.T) {
	h := NewProgressionHandler(&stubService{})

	rec, payload := postJSON(t, h.Finalize, `{"tournamentId": "t1", "countyId": "k1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, payload["success"])

	rec, _ = postJSON(t, h.Finalize, `{"tournamentId": "t1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerErrorClasses(t *testing.T) {
	// Неизвестный уровень — ошибка клиента.
	h := NewProgressionHandler(&stubService{err: services.ErrInvalidLevel})
	rec, _ := postJSON(t, h.InitializeTournament, `{"tournamentId": "t1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Отсутствующий турнир — доменное условие.
	h = NewProgressionHandler(&stubService{err: services.ErrTournamentNotFound})
	rec, payload := postJSON(t, h.InitializeTournament, `{"tournamentId": "t1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, payload["success"])

	// Всё неожиданное — 500 без деталей.
	h = NewProgressionHandler(&stubService{err: errors.New("boom")})
	rec, payload = postJSON(t, h.InitializeTournament, `{"tournamentId": "t1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, payload["error"], "boom")
}

func TestTournamentMatchesHandlerEmpty(t *testing.T) {
	h := NewProgressionHandler(&stubService{})

	rec, payload := postJSON(t, h.TournamentMatches, `{"tournamentId": "t1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), payload["count"])
	assert.Equal(t, []interface{}{}, payload["matches"])
}

func TestTestConnectionHandler(t *testing.T) {
	h := NewProgressionHandler(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/test-connection", nil)
	rec := httptest.NewRecorder()
	h.TestConnection(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	h = NewProgressionHandler(&stubService{pingErr: errors.New("dial refused")})
	rec = httptest.NewRecorder()
	h.TestConnection(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "unreachable", payload["store"])
}
