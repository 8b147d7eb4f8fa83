package labour

import (
	"context"
	"sort"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/schemas"
)

// ErrNoSpecialDiets is shown on the report of events whose schema records no diets.
const ErrNoSpecialDiets = "This event does not record special diets."

// NoSpecialDietReplies are free-text answers that mean "nothing".
var NoSpecialDietReplies = []string{"", "-", "N/A", "Ei ole", "Ei ole."}

type DietRow struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type OtherDiet struct {
	PersonID         int64  `json:"person_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	SpecialDietOther string `json:"special_diet_other"`
}

type SpecialDietReport struct {
	Errors           []string    `json:"errors,omitempty"`
	SpecialDietField bool        `json:"special_diet_field"`
	OtherDietField   bool        `json:"special_diet_other_field"`
	SpecialDiets     []DietRow   `json:"special_diets"`
	Others           []OtherDiet `json:"others"`
}

func isNoDietReply(s string) bool {
	for _, r := range NoSpecialDietReplies {
		if s == r {
			return true
		}
	}
	return false
}

// AggregateDiets builds the report from the active signup extras of an event.
func AggregateDiets(schema schemas.Schema, extras []models.PersonSignupExtra) SpecialDietReport {
	report := SpecialDietReport{
		SpecialDietField: len(schema.SpecialDiets) > 0,
		OtherDietField:   schema.SpecialDietOther,
		SpecialDiets:     []DietRow{},
		Others:           []OtherDiet{},
	}
	if !schema.RecordsSpecialDiets() {
		report.Errors = append(report.Errors, ErrNoSpecialDiets)
		return report
	}

	if report.SpecialDietField {
		counts := map[string]int{}
		for _, e := range extras {
			if !e.IsActive {
				continue
			}
			for _, d := range e.SpecialDiets {
				counts[d]++
			}
		}
		for name, n := range counts {
			report.SpecialDiets = append(report.SpecialDiets, DietRow{Name: name, Count: n})
		}
		sort.Slice(report.SpecialDiets, func(i, j int) bool {
			return report.SpecialDiets[i].Name < report.SpecialDiets[j].Name
		})
	}

	if report.OtherDietField {
		for _, e := range extras {
			if !e.IsActive || isNoDietReply(e.SpecialDietOther) {
				continue
			}
			report.Others = append(report.Others, OtherDiet{
				PersonID:         e.PersonID,
				Name:             e.Person.DisplayName(),
				Email:            e.Person.Email,
				SpecialDietOther: e.SpecialDietOther,
			})
		}
	}
	return report
}

func (s *Service) SpecialDiets(ctx context.Context, eventID int64) (SpecialDietReport, error) {
	schema, err := s.Schema(ctx, eventID)
	if err != nil {
		return SpecialDietReport{}, err
	}
	if !schema.RecordsSpecialDiets() {
		return AggregateDiets(schema, nil), nil
	}
	extras, err := s.store.ActiveSignupExtras(ctx, eventID)
	if err != nil {
		return SpecialDietReport{}, err
	}
	return AggregateDiets(schema, extras), nil
}
