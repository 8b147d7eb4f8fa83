package models

import "time"

type PersonnelClass struct {
	ID       int64  `db:"id" json:"id"`
	EventID  int64  `db:"event_id" json:"event_id"`
	Slug     string `db:"slug" json:"slug"`
	Name     string `db:"name" json:"name"`
	AppLabel string `db:"app_label" json:"app_label"`

	// Lower value wins when a person qualifies for several classes.
	Priority int `db:"priority" json:"priority"`
}

type LabourSignup struct {
	ID        int64     `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	PersonID  int64     `db:"person_id" json:"person_id"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SignupExtra holds the event specific answers of a person. The set of valid Fields is
// determined by the schema registered for the event.
type SignupExtra struct {
	ID               int64          `db:"id" json:"id"`
	EventID          int64          `db:"event_id" json:"event_id"`
	PersonID         int64          `db:"person_id" json:"person_id"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	SpecialDiets     []string       `db:"special_diets" json:"special_diets"`
	SpecialDietOther string         `db:"special_diet_other" json:"special_diet_other"`
	Fields           map[string]any `db:"fields" json:"fields"`
}

type SpecialDiet struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type Enrollment struct {
	ID        int64          `db:"id" json:"id"`
	EventID   int64          `db:"event_id" json:"event_id"`
	PersonID  int64          `db:"person_id" json:"person_id"`
	Fields    map[string]any `db:"fields" json:"fields"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
