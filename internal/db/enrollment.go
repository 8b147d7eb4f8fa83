package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/kompassi/kompassi/internal/enrollment"
	"github.com/kompassi/kompassi/internal/models"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func (s *Store) IsEnrolled(ctx context.Context, eventID, personID int64) (bool, error) {
	var ok bool
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE event_id = $1 AND person_id = $2)
	`, eventID, personID).Scan(&ok)
	return ok, err
}

func (s *Store) CreateEnrollment(ctx context.Context, e *models.Enrollment) error {
	raw, err := json.Marshal(e.Fields)
	if err != nil {
		return err
	}
	err = s.q.QueryRowContext(ctx, `
		INSERT INTO enrollments (event_id, person_id, fields) VALUES ($1, $2, $3::jsonb)
		RETURNING id, created_at
	`, e.EventID, e.PersonID, string(raw)).Scan(&e.ID, &e.CreatedAt)
	if isUniqueViolation(err) {
		return enrollment.ErrAlreadyEnrolled
	}
	return err
}
