package models

import (
	"encoding/json"
	"fmt"
)

// Player — участник турнира. Позиции предыдущего уровня (CommunityPosition
// и т.д.) заполняются при продвижении победителей на следующий уровень.
type Player struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CommunityID string  `json:"communityId"`
	CountyID    string  `json:"countyId,omitempty"`
	RegionID    string  `json:"regionId,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	SkillRating *int    `json:"skillRating,omitempty"`

	Points int `json:"points"`

	CommunityPosition int `json:"communityPosition,omitempty"`
	CountyPosition    int `json:"countyPosition,omitempty"`
	RegionalPosition  int `json:"regionalPosition,omitempty"`
}

// playerDoc mirrors the persisted player document, which historically used
// several field names for the display name.
type playerDoc struct {
	ID          string  `json:"id"`
	PlayerName  string  `json:"playerName"`
	DisplayName string  `json:"displayName"`
	FullName    string  `json:"fullName"`
	Name        string  `json:"name"`
	CommunityID string  `json:"communityId"`
	CountyID    string  `json:"countyId"`
	RegionID    string  `json:"regionId"`
	AvatarURL   *string `json:"avatarUrl"`
	SkillRating *int    `json:"skillRating"`

	Points int `json:"points"`

	CommunityPosition int `json:"communityPosition"`
	CountyPosition    int `json:"countyPosition"`
	RegionalPosition  int `json:"regionalPosition"`
}

func (p *Player) UnmarshalJSON(data []byte) error {
	var doc playerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	p.ID = doc.ID
	p.Name = ResolvePlayerName(doc.ID, doc.PlayerName, doc.DisplayName, doc.FullName, doc.Name)
	p.CommunityID = doc.CommunityID
	p.CountyID = doc.CountyID
	p.RegionID = doc.RegionID
	p.AvatarURL = doc.AvatarURL
	p.SkillRating = doc.SkillRating
	p.Points = doc.Points
	p.CommunityPosition = doc.CommunityPosition
	p.CountyPosition = doc.CountyPosition
	p.RegionalPosition = doc.RegionalPosition
	return nil
}

// ResolvePlayerName picks the first non-empty candidate, falling back to
// Player_<last6> of the id.
func ResolvePlayerName(id string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	suffix := id
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("Player_%s", suffix)
}

// PriorPosition returns the finishing position the player carried from the
// level feeding target (0 when unknown).
func (p Player) PriorPosition(target Level) int {
	switch target {
	case LevelCounty:
		return p.CommunityPosition
	case LevelRegional:
		return p.CountyPosition
	case LevelNational:
		return p.RegionalPosition
	}
	return 0
}

// SetPriorPosition tags the player with its finishing position at level.
func (p *Player) SetPriorPosition(level Level, pos int) {
	switch level {
	case LevelCommunity:
		p.CommunityPosition = pos
	case LevelCounty:
		p.CountyPosition = pos
	case LevelRegional:
		p.RegionalPosition = pos
	}
}
