// Package enrollment lets a person enroll in an event once, answering the event's
// enrollment form.
package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/schemas"
)

var (
	ErrEnrollmentNotEnabled = errors.New("enrollment is not enabled for this event")
	ErrMissingPerson        = errors.New("missing mandatory information")
	ErrAlreadyEnrolled      = errors.New("you are already enrolled in this event")
)

type Store interface {
	EnrollmentEventMeta(ctx context.Context, eventID int64) (models.EnrollmentEventMeta, error)
	IsEnrolled(ctx context.Context, eventID, personID int64) (bool, error)
	// CreateEnrollment returns ErrAlreadyEnrolled when (event, person) already exists.
	CreateEnrollment(ctx context.Context, e *models.Enrollment) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Schema(ctx context.Context, eventID int64) (schemas.Schema, error) {
	meta, err := s.store.EnrollmentEventMeta(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		return schemas.Schema{}, ErrEnrollmentNotEnabled
	}
	if err != nil {
		return schemas.Schema{}, err
	}
	return schemas.Lookup(meta.FormSchema)
}

// Enroll validates answers against the event's form and stores the enrollment. personID 0
// means the user has no person record yet.
func (s *Service) Enroll(ctx context.Context, eventID, personID int64, answers map[string]any) (models.Enrollment, error) {
	schema, err := s.Schema(ctx, eventID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if personID == 0 {
		return models.Enrollment{}, ErrMissingPerson
	}

	enrolled, err := s.store.IsEnrolled(ctx, eventID, personID)
	if err != nil {
		return models.Enrollment{}, err
	}
	if enrolled {
		return models.Enrollment{}, ErrAlreadyEnrolled
	}

	fields, err := schema.Clean(answers)
	if err != nil {
		return models.Enrollment{}, err
	}

	e := models.Enrollment{EventID: eventID, PersonID: personID, Fields: fields}
	if err := s.store.CreateEnrollment(ctx, &e); err != nil {
		if errors.Is(err, ErrAlreadyEnrolled) {
			return models.Enrollment{}, err
		}
		return models.Enrollment{}, fmt.Errorf("create enrollment: %w", err)
	}
	return e, nil
}
