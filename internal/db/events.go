package db

import (
	"context"

	"github.com/kompassi/kompassi/internal/models"
)

func (s *Store) EventBySlug(ctx context.Context, slug string) (models.Event, error) {
	var e models.Event
	err := s.q.QueryRowContext(ctx, `
		SELECT id, slug, name, start_time, end_time FROM events WHERE slug = $1
	`, slug).Scan(&e.ID, &e.Slug, &e.Name, &e.StartTime, &e.EndTime)
	return e, notFound(err)
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO events (slug, name, start_time, end_time) VALUES ($1, $2, $3, $4)
		RETURNING id
	`, e.Slug, e.Name, e.StartTime, e.EndTime).Scan(&e.ID)
}

// ProgrammeEvent returns the event a programme belongs to through its category.
func (s *Store) ProgrammeEvent(ctx context.Context, programmeID int64) (models.Event, error) {
	var e models.Event
	err := s.q.QueryRowContext(ctx, `
		SELECT e.id, e.slug, e.name, e.start_time, e.end_time
		FROM programmes p
		JOIN categories c ON c.id = p.category_id
		JOIN events e ON e.id = c.event_id
		WHERE p.id = $1
	`, programmeID).Scan(&e.ID, &e.Slug, &e.Name, &e.StartTime, &e.EndTime)
	return e, notFound(err)
}

func (s *Store) ProgrammeEventMeta(ctx context.Context, eventID int64) (models.ProgrammeEventMeta, error) {
	var m models.ProgrammeEventMeta
	err := s.q.QueryRowContext(ctx, `
		SELECT event_id, paikkala_default_max_tickets_per_user, paikkala_default_max_tickets_per_batch
		FROM programme_event_metas WHERE event_id = $1
	`, eventID).Scan(&m.EventID, &m.PaikkalaDefaultMaxTicketsPerUser, &m.PaikkalaDefaultMaxTicketsPerBatch)
	return m, notFound(err)
}

func (s *Store) BadgesEventMeta(ctx context.Context, eventID int64) (models.BadgesEventMeta, error) {
	var m models.BadgesEventMeta
	err := s.q.QueryRowContext(ctx, `
		SELECT event_id, badge_layout, is_printing_in_progress FROM badges_event_metas WHERE event_id = $1
	`, eventID).Scan(&m.EventID, &m.BadgeLayout, &m.IsPrintingInProgress)
	return m, notFound(err)
}

// BadgesEnabled reports whether the event runs the badges app.
func (s *Store) BadgesEnabled(ctx context.Context, eventID int64) (bool, error) {
	var ok bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM badges_event_metas WHERE event_id = $1)
	`, eventID).Scan(&ok)
	return ok, err
}

func (s *Store) LabourEventMeta(ctx context.Context, eventID int64) (models.LabourEventMeta, error) {
	var m models.LabourEventMeta
	err := s.q.QueryRowContext(ctx, `
		SELECT event_id, signup_extra_schema FROM labour_event_metas WHERE event_id = $1
	`, eventID).Scan(&m.EventID, &m.SignupExtraSchema)
	return m, notFound(err)
}

func (s *Store) EnrollmentEventMeta(ctx context.Context, eventID int64) (models.EnrollmentEventMeta, error) {
	var m models.EnrollmentEventMeta
	err := s.q.QueryRowContext(ctx, `
		SELECT event_id, form_schema FROM enrollment_event_metas WHERE event_id = $1
	`, eventID).Scan(&m.EventID, &m.FormSchema)
	return m, notFound(err)
}

// EnableProgramme, EnableBadges, EnableLabour and EnableEnrollment install an app for an
// event by creating its meta row.
func (s *Store) EnableProgramme(ctx context.Context, m models.ProgrammeEventMeta) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO programme_event_metas (event_id, paikkala_default_max_tickets_per_user, paikkala_default_max_tickets_per_batch)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE SET
			paikkala_default_max_tickets_per_user = EXCLUDED.paikkala_default_max_tickets_per_user,
			paikkala_default_max_tickets_per_batch = EXCLUDED.paikkala_default_max_tickets_per_batch
	`, m.EventID, m.PaikkalaDefaultMaxTicketsPerUser, m.PaikkalaDefaultMaxTicketsPerBatch)
	return err
}

func (s *Store) EnableBadges(ctx context.Context, m models.BadgesEventMeta) error {
	if m.BadgeLayout == "" {
		m.BadgeLayout = "trad"
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO badges_event_metas (event_id, badge_layout) VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET badge_layout = EXCLUDED.badge_layout
	`, m.EventID, m.BadgeLayout)
	return err
}

func (s *Store) EnableLabour(ctx context.Context, m models.LabourEventMeta) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO labour_event_metas (event_id, signup_extra_schema) VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET signup_extra_schema = EXCLUDED.signup_extra_schema
	`, m.EventID, m.SignupExtraSchema)
	return err
}

func (s *Store) EnableEnrollment(ctx context.Context, m models.EnrollmentEventMeta) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO enrollment_event_metas (event_id, form_schema) VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET form_schema = EXCLUDED.form_schema
	`, m.EventID, m.FormSchema)
	return err
}
