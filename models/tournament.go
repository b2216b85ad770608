package models

import (
	"encoding/json"
	"time"
)

type SchedulingPreference string

const (
	SchedulingWeekend  SchedulingPreference = "weekend"
	SchedulingFullWeek SchedulingPreference = "full_week"
)

// ParticipantScope ограничивает множества сообществ/округов/регионов,
// допущенных к турниру. Выводится автоматически, если не задан.
type ParticipantScope struct {
	ScopeType           string   `json:"scopeType"`
	AllowedCommunityIDs []string `json:"allowedCommunityIds"`
	AllowedCountyIDs    []string `json:"allowedCountyIds"`
	AllowedRegionIDs    []string `json:"allowedRegionIds"`
}

// Tournament — конфигурация турнира, как она хранится в документе
// tournaments/<id>.
type Tournament struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name,omitempty"`
	HierarchicalLevel    Level                `json:"hierarchicalLevel"`
	Special              bool                 `json:"special"`
	SchedulingPreference SchedulingPreference `json:"schedulingPreference,omitempty"`
	RegisteredPlayerIDs  []string             `json:"registeredPlayersIds"`
	ParticipantScope     *ParticipantScope    `json:"participantScope,omitempty"`
	CreatedAt            time.Time            `json:"createdAt,omitempty"`
}

// tournamentDoc accepts both spellings of the registered players field that
// coexist in persisted documents. Only the canonical plural is ever written.
type tournamentDoc struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	HierarchicalLevel    Level                `json:"hierarchicalLevel"`
	Special              bool                 `json:"special"`
	SchedulingPreference SchedulingPreference `json:"schedulingPreference"`
	RegisteredPlayersIDs []string             `json:"registeredPlayersIds"`
	RegisteredPlayerIDs  []string             `json:"registeredPlayerIds"`
	ParticipantScope     *ParticipantScope    `json:"participantScope"`
	CreatedAt            time.Time            `json:"createdAt"`
}

func (t *Tournament) UnmarshalJSON(data []byte) error {
	var doc tournamentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	t.ID = doc.ID
	t.Name = doc.Name
	t.HierarchicalLevel = doc.HierarchicalLevel
	t.Special = doc.Special
	t.SchedulingPreference = doc.SchedulingPreference
	t.RegisteredPlayerIDs = doc.RegisteredPlayersIDs
	if len(t.RegisteredPlayerIDs) == 0 {
		t.RegisteredPlayerIDs = doc.RegisteredPlayerIDs
	}
	t.ParticipantScope = doc.ParticipantScope
	t.CreatedAt = doc.CreatedAt
	if t.Special {
		t.HierarchicalLevel = LevelSpecial
	}
	if t.HierarchicalLevel == "" {
		t.HierarchicalLevel = LevelCommunity
	}
	if t.SchedulingPreference == "" {
		t.SchedulingPreference = SchedulingWeekend
	}
	return nil
}
