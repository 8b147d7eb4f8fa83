package programme

import (
	"fmt"
	"strings"

	"github.com/kompassi/kompassi/internal/models"
)

// JSON output shapes understood by AsJSON.
const (
	FormatDefault = "default"
	FormatDesucon = "desucon"
	FormatRopecon = "ropecon"

	rpgCategorySlug = "roolipeli"
)

// View is a programme together with the related rows its listings need.
type View struct {
	Programme          models.Programme `json:"programme"`
	Event              models.Event     `json:"event"`
	Category           models.Category  `json:"category"`
	Room               *models.Room     `json:"room"`
	Tags               []string         `json:"tags"`
	FreeformOrganizers []string         `json:"freeform_organizers"`
	PublicHosts        []models.Person  `json:"public_hosts"`
}

// FormattedHosts lists freeform organizers first, then hosts in public roles.
func (v View) FormattedHosts() string {
	parts := append([]string(nil), v.FreeformOrganizers...)
	for _, p := range v.PublicHosts {
		parts = append(parts, p.DisplayName())
	}
	return strings.Join(parts, ", ")
}

func (v View) RopeconFormattedHosts() string {
	parts := append([]string(nil), v.FreeformOrganizers...)
	for _, p := range v.PublicHosts {
		parts = append(parts, p.FirstnameSurname())
	}
	return strings.Join(parts, ", ")
}

func (v View) IsPublic() bool {
	return v.Programme.State == models.StatePublished && v.Category.Public
}

func (v View) RoomName() *string {
	if v.Room == nil {
		return nil
	}
	return &v.Room.Name
}

func (v View) roomSlug() *string {
	if v.Room == nil {
		return nil
	}
	return &v.Room.Slug
}

// Identifier is the stable public id of the programme in listings.
func (v View) Identifier() string {
	return fmt.Sprintf("p%d", v.Programme.ID)
}

// AsJSON renders the programme in one of the named listing shapes.
func (v View) AsJSON(format string) (map[string]any, error) {
	p := v.Programme
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}

	switch format {
	case FormatDefault:
		return map[string]any{
			"title":           p.Title,
			"description":     p.Description,
			"category_title":  v.Category.Title,
			"formatted_hosts": v.FormattedHosts(),
			"room_name":       v.RoomName(),
			"length":          p.Length,
			"start_time":      p.StartTime,
			"is_public":       v.IsPublic(),
		}, nil

	case FormatDesucon:
		identifier := p.Slug
		if identifier == "" {
			identifier = v.Identifier()
		}
		status := 0
		if v.IsPublic() {
			status = 1
		}
		return map[string]any{
			"title":         p.Title,
			"description":   p.Description,
			"start_time":    p.StartTime,
			"end_time":      p.EndTime,
			"language":      p.Language,
			"status":        status,
			"kind":          v.Category.Slug,
			"kind_display":  v.Category.Title,
			"identifier":    identifier,
			"location":      v.RoomName(),
			"location_slug": v.roomSlug(),
			"presenter":     v.FormattedHosts(),
			"tags":          tags,
		}, nil

	case FormatRopecon:
		out := map[string]any{
			"title":           p.Title,
			"description":     p.Description,
			"category_title":  v.Category.Title,
			"formatted_hosts": v.RopeconFormattedHosts(),
			"room_name":       v.RoomName(),
			"length":          p.Length,
			"start_time":      p.StartTime,
			"end_time":        p.EndTime,
			"language":        p.Language,
			"rpg_system":      p.RPGSystem,
			"identifier":      v.Identifier(),
			"tags":            tags,
			"genres":          ordered(p.RopeconGenres, Genres),
			"styles":          ordered(p.RopeconStyles, Styles),
		}
		// Game specific attributes are only meaningful for role-playing games.
		rpg := v.Category.Slug == rpgCategorySlug
		for key, val := range map[string]any{
			"no_language":                           p.RopeconIsNoLanguage,
			"english_ok":                            p.IsEnglishOK,
			"children_friendly":                     p.IsChildrenFriendly,
			"age_restricted":                        p.IsAgeRestricted,
			"beginner_friendly":                     p.IsBeginnerFriendly,
			"intended_for_experienced_participants": p.IsIntendedForExperiencedParticipants,
			"min_players":                           p.MinPlayers,
			"max_players":                           p.MaxPlayers,
		} {
			if rpg {
				out[key] = val
			} else {
				out[key] = nil
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: format %q", ErrNotImplemented, format)
	}
}

// ordered returns the members of set in the canonical order of all.
func ordered(set, all []string) []string {
	in := make(map[string]bool, len(set))
	for _, s := range set {
		in[s] = true
	}
	out := []string{}
	for _, s := range all {
		if in[s] {
			out = append(out, s)
		}
	}
	return out
}
