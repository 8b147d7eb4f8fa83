package db

import (
	"context"
	"time"

	"github.com/kompassi/kompassi/internal/badges"
	"github.com/kompassi/kompassi/internal/models"
)

// Entitlement picks the highest priority personnel class among the person's active
// programme roles and active labour signups in the event.
func (s *Store) Entitlement(ctx context.Context, eventID, personID int64) (badges.Entitlement, error) {
	var e badges.Entitlement
	pc := &e.PersonnelClass
	err := s.q.QueryRowContext(ctx, `
		SELECT pc.id, pc.event_id, pc.slug, pc.name, pc.app_label, pc.priority, t.job_title
		FROM (
			SELECT r.personnel_class_id AS class_id, r.title AS job_title
			FROM programme_roles pr
			JOIN roles r ON r.id = pr.role_id
			JOIN programmes p ON p.id = pr.programme_id
			JOIN categories c ON c.id = p.category_id
			WHERE c.event_id = $1 AND pr.person_id = $2 AND pr.is_active
			  AND r.personnel_class_id IS NOT NULL
			UNION ALL
			SELECT lspc.personnel_class_id, pc2.name
			FROM labour_signups ls
			JOIN labour_signup_personnel_classes lspc ON lspc.signup_id = ls.id
			JOIN personnel_classes pc2 ON pc2.id = lspc.personnel_class_id
			WHERE ls.event_id = $1 AND ls.person_id = $2 AND ls.is_active
		) t
		JOIN personnel_classes pc ON pc.id = t.class_id
		ORDER BY pc.priority, pc.id
		LIMIT 1
	`, eventID, personID).Scan(&pc.ID, &pc.EventID, &pc.Slug, &pc.Name, &pc.AppLabel, &pc.Priority, &e.JobTitle)
	return e, notFound(err)
}

const badgeColumns = `id, event_id, person_id, personnel_class_id, first_name, surname, nick, job_title,
	is_first_name_visible, is_surname_visible, is_nick_visible, created_by, created_at, printed_at, revoked_at`

func scanBadge(row scanner, b *models.Badge) error {
	return row.Scan(&b.ID, &b.EventID, &b.PersonID, &b.PersonnelClassID, &b.FirstName, &b.Surname, &b.Nick, &b.JobTitle,
		&b.IsFirstNameVisible, &b.IsSurnameVisible, &b.IsNickVisible, &b.CreatedBy, &b.CreatedAt, &b.PrintedAt, &b.RevokedAt)
}

func (s *Store) PersonBadge(ctx context.Context, eventID, personID int64) (models.Badge, error) {
	var b models.Badge
	err := scanBadge(s.q.QueryRowContext(ctx, `
		SELECT `+badgeColumns+` FROM badges WHERE event_id = $1 AND person_id = $2
	`, eventID, personID), &b)
	return b, notFound(err)
}

func (s *Store) EventBadges(ctx context.Context, eventID int64) ([]models.Badge, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+badgeColumns+` FROM badges WHERE event_id = $1 ORDER BY surname, first_name, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := scanBadge(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertPersonBadge keys on (event, person). Names of an existing badge are kept; the
// personnel class and job title follow the latest entitlement.
func (s *Store) UpsertPersonBadge(ctx context.Context, b *models.Badge) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO badges (
			event_id, person_id, personnel_class_id, first_name, surname, nick, job_title,
			is_first_name_visible, is_surname_visible, is_nick_visible, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id, person_id) WHERE person_id IS NOT NULL DO UPDATE SET
			personnel_class_id = EXCLUDED.personnel_class_id,
			job_title = EXCLUDED.job_title,
			revoked_at = NULL
		RETURNING id, created_at
	`, b.EventID, b.PersonID, b.PersonnelClassID, b.FirstName, b.Surname, b.Nick, b.JobTitle,
		b.IsFirstNameVisible, b.IsSurnameVisible, b.IsNickVisible, b.CreatedBy,
	).Scan(&b.ID, &b.CreatedAt)
}

func (s *Store) CreateBadge(ctx context.Context, b *models.Badge) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO badges (
			event_id, person_id, personnel_class_id, first_name, surname, nick, job_title,
			is_first_name_visible, is_surname_visible, is_nick_visible, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, b.EventID, b.PersonID, b.PersonnelClassID, b.FirstName, b.Surname, b.Nick, b.JobTitle,
		b.IsFirstNameVisible, b.IsSurnameVisible, b.IsNickVisible, b.CreatedBy,
	).Scan(&b.ID, &b.CreatedAt)
}

func (s *Store) DeleteBadge(ctx context.Context, id int64) error {
	return affectedOne(s.q.ExecContext(ctx, `DELETE FROM badges WHERE id = $1`, id))
}

func (s *Store) RevokeBadge(ctx context.Context, id int64, at time.Time) error {
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE badges SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL
	`, id, at))
}

// MarkBadgePrinted stamps an unrevoked badge of the event as printed.
func (s *Store) MarkBadgePrinted(ctx context.Context, eventID, id int64, at time.Time) error {
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE badges SET printed_at = $3
		WHERE id = $1 AND event_id = $2 AND revoked_at IS NULL
	`, id, eventID, at))
}

// DeleteClasslessBadges removes badges whose personnel class was deleted.
func (s *Store) DeleteClasslessBadges(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM badges WHERE personnel_class_id IS NULL`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
