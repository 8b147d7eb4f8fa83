// Package labour holds the volunteer side of an event: signup extras answered against the
// event's schema and the special diet report built from them.
package labour

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/schemas"
)

var ErrLabourNotEnabled = errors.New("labour is not enabled for this event")

type Store interface {
	LabourEventMeta(ctx context.Context, eventID int64) (models.LabourEventMeta, error)
	SignupExtra(ctx context.Context, eventID, personID int64) (models.SignupExtra, error)
	// SaveSignupExtra inserts or updates the extra of (event, person).
	SaveSignupExtra(ctx context.Context, extra *models.SignupExtra) error
	ActiveSignupExtras(ctx context.Context, eventID int64) ([]models.PersonSignupExtra, error)
	ActiveProgrammePeople(ctx context.Context, eventID int64, personIDs []int64) (map[int64]bool, error)
}

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Schema returns the signup-extra schema of the event.
func (s *Service) Schema(ctx context.Context, eventID int64) (schemas.Schema, error) {
	meta, err := s.store.LabourEventMeta(ctx, eventID)
	if errors.Is(err, models.ErrNotFound) {
		return schemas.Schema{}, ErrLabourNotEnabled
	}
	if err != nil {
		return schemas.Schema{}, err
	}
	return schemas.Lookup(meta.SignupExtraSchema)
}

// ApplyProgrammeState runs the schema's apply-state hook for the given people. Events
// without labour or with a schema that does not support programme are left alone.
func (s *Service) ApplyProgrammeState(ctx context.Context, eventID int64, personIDs []int64) error {
	schema, err := s.Schema(ctx, eventID)
	if errors.Is(err, ErrLabourNotEnabled) {
		return nil
	}
	if err != nil {
		return err
	}
	if !schema.SupportsProgramme || len(personIDs) == 0 {
		return nil
	}

	active, err := s.store.ActiveProgrammePeople(ctx, eventID, personIDs)
	if err != nil {
		return err
	}

	for _, personID := range personIDs {
		extra, err := s.store.SignupExtra(ctx, eventID, personID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			extra = models.SignupExtra{EventID: eventID, PersonID: personID, SpecialDiets: []string{}, Fields: map[string]any{}}
		case err != nil:
			return err
		}

		before := extra.IsActive
		schema.ApplyState(&extra, active[personID])
		if extra.ID != 0 && before == extra.IsActive {
			continue
		}
		if err := s.store.SaveSignupExtra(ctx, &extra); err != nil {
			return fmt.Errorf("save signup extra of person %d: %w", personID, err)
		}
		logging.Ctx(ctx, s.log).Debug("signup extra state applied",
			zap.Int64("person_id", personID), zap.Bool("is_active", extra.IsActive))
	}
	return nil
}

// SignupExtraForm is what a person submits for an event.
type SignupExtraForm struct {
	Answers          map[string]any
	SpecialDiets     []string
	SpecialDietOther string
}

// SaveSignupExtra validates the form against the event schema and stores it.
func (s *Service) SaveSignupExtra(ctx context.Context, eventID, personID int64, form SignupExtraForm) (models.SignupExtra, error) {
	schema, err := s.Schema(ctx, eventID)
	if err != nil {
		return models.SignupExtra{}, err
	}

	fields, err := schema.Clean(form.Answers)
	if err != nil {
		return models.SignupExtra{}, err
	}
	diets, err := schema.CleanDiets(form.SpecialDiets)
	if err != nil {
		return models.SignupExtra{}, err
	}
	other := form.SpecialDietOther
	if !schema.SpecialDietOther {
		other = ""
	}

	extra, err := s.store.SignupExtra(ctx, eventID, personID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		extra = models.SignupExtra{EventID: eventID, PersonID: personID, IsActive: true}
	case err != nil:
		return models.SignupExtra{}, err
	}
	extra.Fields = fields
	extra.SpecialDiets = diets
	extra.SpecialDietOther = other

	if schema.SupportsProgramme {
		active, err := s.store.ActiveProgrammePeople(ctx, eventID, []int64{personID})
		if err != nil {
			return models.SignupExtra{}, err
		}
		schema.ApplyState(&extra, active[personID])
	}

	if err := s.store.SaveSignupExtra(ctx, &extra); err != nil {
		return models.SignupExtra{}, fmt.Errorf("save signup extra: %w", err)
	}
	return extra, nil
}
