package models

import "time"

type Event struct {
	ID        int64      `db:"id" json:"id"`
	Slug      string     `db:"slug" json:"slug"`
	Name      string     `db:"name" json:"name"`
	StartTime *time.Time `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time"`
}

// ProgrammeEventMeta is present only for events that run the programme app.
type ProgrammeEventMeta struct {
	EventID                           int64 `db:"event_id" json:"event_id"`
	PaikkalaDefaultMaxTicketsPerUser  int   `db:"paikkala_default_max_tickets_per_user" json:"paikkala_default_max_tickets_per_user"`
	PaikkalaDefaultMaxTicketsPerBatch int   `db:"paikkala_default_max_tickets_per_batch" json:"paikkala_default_max_tickets_per_batch"`
}

type BadgesEventMeta struct {
	EventID              int64  `db:"event_id" json:"event_id"`
	BadgeLayout          string `db:"badge_layout" json:"badge_layout"`
	IsPrintingInProgress bool   `db:"is_printing_in_progress" json:"is_printing_in_progress"`
}

type LabourEventMeta struct {
	EventID           int64  `db:"event_id" json:"event_id"`
	SignupExtraSchema string `db:"signup_extra_schema" json:"signup_extra_schema"`
}

type EnrollmentEventMeta struct {
	EventID    int64  `db:"event_id" json:"event_id"`
	FormSchema string `db:"form_schema" json:"form_schema"`
}

// GroupName follows the "<event>-<app>-<suffix>" convention used for permission groups.
func GroupName(eventSlug, appLabel, suffix string) string {
	return eventSlug + "-" + appLabel + "-" + suffix
}
