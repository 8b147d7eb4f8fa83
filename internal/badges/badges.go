// Package badges issues name badges. Ensure is the only automated write path; admins may
// also create manual badges.
package badges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/metrics"
	"github.com/kompassi/kompassi/internal/models"
)

var (
	ErrBadgesNotEnabled = errors.New("badges are not enabled for this event")
	ErrNameRequired     = errors.New("a badge needs at least one name")
)

// Entitlement is the personnel class that wins for a person in an event, with the job
// title printed on the badge.
type Entitlement struct {
	PersonnelClass models.PersonnelClass
	JobTitle       string
}

type Store interface {
	BadgesEventMeta(ctx context.Context, eventID int64) (models.BadgesEventMeta, error)
	GetPerson(ctx context.Context, personID int64) (models.Person, error)
	// Entitlement returns models.ErrNotFound when the person has neither an active
	// programme role nor an active labour signup in the event.
	Entitlement(ctx context.Context, eventID, personID int64) (Entitlement, error)

	PersonBadge(ctx context.Context, eventID, personID int64) (models.Badge, error)
	// UpsertPersonBadge inserts or updates the badge keyed by (event, person).
	UpsertPersonBadge(ctx context.Context, b *models.Badge) error
	CreateBadge(ctx context.Context, b *models.Badge) error
	DeleteBadge(ctx context.Context, id int64) error
	RevokeBadge(ctx context.Context, id int64, at time.Time) error
	MarkBadgePrinted(ctx context.Context, eventID, id int64, at time.Time) error
	DeleteClasslessBadges(ctx context.Context) (int64, error)
}

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Ensure brings the badge of a person in line with their current entitlement. A person
// without one loses any badge they had: unprinted badges are deleted, printed ones revoked.
func (s *Service) Ensure(ctx context.Context, eventID, personID int64) (*models.Badge, error) {
	log := logging.Ctx(ctx, s.log).With(zap.Int64("event_id", eventID), zap.Int64("person_id", personID))

	ent, err := s.store.Entitlement(ctx, eventID, personID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.removeSpurious(ctx, log, eventID, personID)
	}
	if err != nil {
		return nil, fmt.Errorf("badge entitlement: %w", err)
	}

	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	badge, err := s.store.PersonBadge(ctx, eventID, personID)
	created := errors.Is(err, models.ErrNotFound)
	if err != nil && !created {
		return nil, err
	}
	if created {
		badge = models.Badge{
			EventID:            eventID,
			PersonID:           &personID,
			FirstName:          person.FirstName,
			Surname:            person.Surname,
			Nick:               person.Nick,
			IsFirstNameVisible: true,
			IsSurnameVisible:   true,
			IsNickVisible:      person.Nick != "",
		}
	}

	classID := ent.PersonnelClass.ID
	badge.PersonnelClassID = &classID
	badge.JobTitle = ent.JobTitle
	badge.RevokedAt = nil

	if err := s.store.UpsertPersonBadge(ctx, &badge); err != nil {
		return nil, fmt.Errorf("save badge: %w", err)
	}

	result := "updated"
	if created {
		result = "created"
		log.Info("badge created", zap.String("personnel_class", ent.PersonnelClass.Slug))
	}
	metrics.BadgesEnsured.WithLabelValues(result).Inc()
	return &badge, nil
}

func (s *Service) removeSpurious(ctx context.Context, log *zap.Logger, eventID, personID int64) error {
	badge, err := s.store.PersonBadge(ctx, eventID, personID)
	if errors.Is(err, models.ErrNotFound) {
		metrics.BadgesEnsured.WithLabelValues("none").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	if badge.PrintedAt != nil {
		if badge.RevokedAt != nil {
			return nil
		}
		if err := s.store.RevokeBadge(ctx, badge.ID, s.now()); err != nil {
			return fmt.Errorf("revoke badge: %w", err)
		}
		log.Info("printed badge revoked")
		metrics.BadgesEnsured.WithLabelValues("revoked").Inc()
		return nil
	}

	if err := s.store.DeleteBadge(ctx, badge.ID); err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	log.Info("spurious badge deleted")
	metrics.BadgesEnsured.WithLabelValues("deleted").Inc()
	return nil
}

// ManualBadge is the admin form for badges not tied to a person.
type ManualBadge struct {
	PersonnelClassID int64  `json:"personnel_class_id" validate:"required"`
	FirstName        string `json:"first_name" validate:"max=1023"`
	Surname          string `json:"surname" validate:"max=1023"`
	Nick             string `json:"nick" validate:"max=1023"`
	JobTitle         string `json:"job_title" validate:"max=63"`
}

// CreateManual stores an admin-made badge. Names left empty are not printed. actorID is
// the person creating the badge; the badge records their user account.
func (s *Service) CreateManual(ctx context.Context, eventID int64, actorID *int64, form ManualBadge) (models.Badge, error) {
	if _, err := s.store.BadgesEventMeta(ctx, eventID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Badge{}, ErrBadgesNotEnabled
		}
		return models.Badge{}, err
	}

	var createdBy *int64
	if actorID != nil {
		actor, err := s.store.GetPerson(ctx, *actorID)
		if err != nil {
			return models.Badge{}, fmt.Errorf("acting person %d: %w", *actorID, err)
		}
		createdBy = actor.UserID
	}

	first := strings.TrimSpace(form.FirstName)
	surname := strings.TrimSpace(form.Surname)
	nick := strings.TrimSpace(form.Nick)
	if first == "" && surname == "" && nick == "" {
		return models.Badge{}, ErrNameRequired
	}

	classID := form.PersonnelClassID
	b := models.Badge{
		EventID:            eventID,
		PersonnelClassID:   &classID,
		FirstName:          first,
		Surname:            surname,
		Nick:               nick,
		JobTitle:           strings.TrimSpace(form.JobTitle),
		IsFirstNameVisible: first != "",
		IsSurnameVisible:   surname != "",
		IsNickVisible:      nick != "",
		CreatedBy:          createdBy,
	}
	if err := s.store.CreateBadge(ctx, &b); err != nil {
		return models.Badge{}, fmt.Errorf("create badge: %w", err)
	}
	metrics.BadgesEnsured.WithLabelValues("manual").Inc()
	return b, nil
}

// MarkPrinted records that a badge of the event went to print. A printed badge is revoked
// instead of deleted when its holder loses the entitlement.
func (s *Service) MarkPrinted(ctx context.Context, eventID, badgeID int64) error {
	if err := s.store.MarkBadgePrinted(ctx, eventID, badgeID, s.now()); err != nil {
		return fmt.Errorf("mark badge %d printed: %w", badgeID, err)
	}
	return nil
}

// Cleanup deletes badges whose personnel class has gone away.
func (s *Service) Cleanup(ctx context.Context) error {
	n, err := s.store.DeleteClasslessBadges(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("classless badges deleted", zap.Int64("count", n))
	}
	return nil
}
