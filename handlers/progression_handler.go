package handlers

import (
	"errors"
	"net/http"

	"github.com/Mutwiricris/cuesports-engine/models"
	"github.com/Mutwiricris/cuesports-engine/services"
)

// ProgressionHandler exposes the tournament progression operations over JSON.
// Every response carries success plus either result fields or error.
type ProgressionHandler struct {
	service services.ProgressionService
}

func NewProgressionHandler(service services.ProgressionService) *ProgressionHandler {
	return &ProgressionHandler{service: service}
}

func (h *ProgressionHandler) InitializeTournament(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID         string `json:"tournamentId"`
		Special              *bool  `json:"special"`
		Level                string `json:"level"`
		SchedulingPreference string `json:"schedulingPreference"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" {
		badRequestResponse(w, errors.New("tournamentId is required"))
		return
	}

	result, err := h.service.InitializeTournament(r.Context(), services.InitializeTournamentParams{
		TournamentID:         input.TournamentID,
		Special:              input.Special,
		Level:                models.Level(input.Level),
		SchedulingPreference: models.SchedulingPreference(input.SchedulingPreference),
	})
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{
		"success":      true,
		"tournamentId": result.TournamentID,
		"level":        result.Level,
		"totalMatches": result.TotalMatches,
		"entities":     result.Entities,
	})
}

// NextRound returns the handler advancing one entity at the given level. The
// currentRound field in the body is accepted as a hint only; the actual round
// is recomputed from persisted matches.
func (h *ProgressionHandler) NextRound(level models.Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			TournamentID string `json:"tournamentId"`
			CommunityID  string `json:"communityId"`
			CountyID     string `json:"countyId"`
			RegionID     string `json:"regionId"`
			CurrentRound string `json:"currentRound"`
		}
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, err)
			return
		}
		if input.TournamentID == "" {
			badRequestResponse(w, errors.New("tournamentId is required"))
			return
		}

		entityID := entityIDFromBody(level, input.CommunityID, input.CountyID, input.RegionID)
		result, err := h.service.NextRound(r.Context(), input.TournamentID, level, entityID)
		if err != nil {
			mapServiceErrorToHTTP(w, err)
			return
		}

		if result.TournamentComplete {
			writeJSON(w, http.StatusOK, jsonResponse{
				"success":   true,
				"action":    "tournament_complete",
				"positions": result.Positions,
			})
			return
		}

		writeJSON(w, http.StatusOK, jsonResponse{
			"success":      true,
			"tournamentId": input.TournamentID,
			"currentRound": result.CurrentRound,
			"nextRound":    result.NextRound,
			"matches":      result.Matches,
			"metadata":     result.Metadata,
		})
	}
}

// InitializeLevel returns the handler promoting lower-level finishers into
// the given level.
func (h *ProgressionHandler) InitializeLevel(level models.Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			TournamentID string   `json:"tournamentId"`
			CountyIDs    []string `json:"countyIds"`
			RegionIDs    []string `json:"regionIds"`
		}
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, err)
			return
		}
		if input.TournamentID == "" {
			badRequestResponse(w, errors.New("tournamentId is required"))
			return
		}

		var entityIDs []string
		switch level {
		case models.LevelCounty:
			entityIDs = input.CountyIDs
		case models.LevelRegional:
			entityIDs = input.RegionIDs
		}

		result, err := h.service.InitializeLevel(r.Context(), input.TournamentID, level, entityIDs)
		if err != nil {
			mapServiceErrorToHTTP(w, err)
			return
		}

		writeJSON(w, http.StatusOK, jsonResponse{
			"success":      true,
			"tournamentId": result.TournamentID,
			"level":        result.Level,
			"totalMatches": result.TotalMatches,
			"entities":     result.Entities,
		})
	}
}

// FinalizeCommunity keeps the historical endpoint shape for community
// finalization.
func (h *ProgressionHandler) FinalizeCommunity(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID string `json:"tournamentId"`
		CommunityID  string `json:"communityId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" || input.CommunityID == "" {
		badRequestResponse(w, errors.New("tournamentId and communityId are required"))
		return
	}
	h.finalize(w, r, input.TournamentID, models.LevelCommunity, input.CommunityID)
}

// Finalize is the general-purpose finalizer: the level is inferred from
// whichever entity id the body carries.
func (h *ProgressionHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID string `json:"tournamentId"`
		CommunityID  string `json:"communityId"`
		CountyID     string `json:"countyId"`
		RegionID     string `json:"regionId"`
		Level        string `json:"level"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" {
		badRequestResponse(w, errors.New("tournamentId is required"))
		return
	}

	var (
		level    models.Level
		entityID string
	)
	switch {
	case input.CommunityID != "":
		level, entityID = models.LevelCommunity, input.CommunityID
	case input.CountyID != "":
		level, entityID = models.LevelCounty, input.CountyID
	case input.RegionID != "":
		level, entityID = models.LevelRegional, input.RegionID
	case input.Level != "":
		level = models.Level(input.Level)
	default:
		badRequestResponse(w, errors.New("one of communityId, countyId, regionId or level is required"))
		return
	}
	h.finalize(w, r, input.TournamentID, level, entityID)
}

func (h *ProgressionHandler) finalize(w http.ResponseWriter, r *http.Request, tournamentID string, level models.Level, entityID string) {
	result, err := h.service.Finalize(r.Context(), tournamentID, level, entityID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"success":          true,
		"level":            result.Level,
		"entityId":         result.EntityID,
		"positions":        result.Positions,
		"alreadyFinalized": result.AlreadyFinalized,
	})
}

func (h *ProgressionHandler) Positions(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID string `json:"tournamentId"`
		EntityID     string `json:"entityId"`
		Level        string `json:"level"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" || input.Level == "" {
		badRequestResponse(w, errors.New("tournamentId and level are required"))
		return
	}

	result, err := h.service.Positions(r.Context(), input.TournamentID, models.Level(input.Level), input.EntityID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"success":   true,
		"completed": result.Completed,
		"positions": result.Positions,
	})
}

func (h *ProgressionHandler) TournamentMatches(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID string `json:"tournamentId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if input.TournamentID == "" {
		badRequestResponse(w, errors.New("tournamentId is required"))
		return
	}

	matches, err := h.service.TournamentMatches(r.Context(), input.TournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"success": true,
		"count":   len(matches),
		"matches": matches,
	})
}

func (h *ProgressionHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		domainErrorResponse(w, err, jsonResponse{"store": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"success": true,
		"message": "algorithm service is reachable",
	})
}

func entityIDFromBody(level models.Level, communityID, countyID, regionID string) string {
	switch level {
	case models.LevelCommunity:
		return communityID
	case models.LevelCounty:
		return countyID
	case models.LevelRegional:
		return regionID
	}
	return ""
}
