// Package mailings sends admin-authored messages to recipient groups. A sent message
// keeps reaching people who join the group later until it is expired.
package mailings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/logging"
	"github.com/kompassi/kompassi/internal/metrics"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/observability"
)

var (
	ErrCannotDeleteSent = errors.New("a sent message cannot be deleted")
	ErrNotSent          = errors.New("message has not been sent")
	// ErrUnreachable is returned by a Sender when the person has no address on its channel.
	ErrUnreachable = errors.New("recipient unreachable on this channel")
)

// claimLease is how long a delivery claim blocks other runs before it counts as abandoned.
const claimLease = 10 * time.Minute

type Store interface {
	GetMessage(ctx context.Context, eventID, messageID int64) (models.Message, error)
	EventMessages(ctx context.Context, eventID int64) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	UpdateMessage(ctx context.Context, m *models.Message) error
	DeleteMessage(ctx context.Context, messageID int64) error
	GetRecipientGroup(ctx context.Context, eventID, id int64) (models.RecipientGroup, error)

	// PendingRecipients lists members of the message's recipient group who have not
	// received the message yet.
	PendingRecipients(ctx context.Context, messageID int64) ([]models.Person, error)
	// ClaimDelivery reserves the delivery of (message, person). It reports false when the
	// message was delivered already or another run holds a claim newer than staleBefore.
	ClaimDelivery(ctx context.Context, messageID, personID int64, at, staleBefore time.Time) (bool, error)
	// ReleaseDelivery forgets an undelivered claim after a failed attempt.
	ReleaseDelivery(ctx context.Context, messageID, personID int64) error
	MarkDelivered(ctx context.Context, messageID, personID int64, at time.Time) error
	ActiveMessages(ctx context.Context) ([]models.Message, error)
}

type Sender interface {
	Send(ctx context.Context, to models.Person, m models.Message) error
}

type Service struct {
	store   Store
	senders map[models.Channel]Sender
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, senders map[models.Channel]Sender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, senders: senders, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, eventID int64) ([]models.Message, error) {
	return s.store.EventMessages(ctx, eventID)
}

func (s *Service) Get(ctx context.Context, eventID, messageID int64) (models.Message, error) {
	return s.store.GetMessage(ctx, eventID, messageID)
}

// Send marks m sent and delivers it to every current recipient. Sending an already sent
// message only reaches recipients who have not received it yet.
func (s *Service) Send(ctx context.Context, m *models.Message) error {
	if !m.IsSent() {
		now := s.now()
		m.SentAt = &now
		m.ExpiredAt = nil
		if err := s.store.UpdateMessage(ctx, m); err != nil {
			return fmt.Errorf("mark message sent: %w", err)
		}
	}
	_, err := s.deliver(ctx, *m)
	return err
}

// Expire stops automatic delivery to new recipients. Already delivered copies stay.
func (s *Service) Expire(ctx context.Context, m *models.Message) error {
	if !m.IsSent() {
		return ErrNotSent
	}
	if m.IsExpired() {
		return nil
	}
	now := s.now()
	m.ExpiredAt = &now
	return s.store.UpdateMessage(ctx, m)
}

// Unexpire makes an expired message active again and catches up on new recipients.
func (s *Service) Unexpire(ctx context.Context, m *models.Message) error {
	if !m.IsSent() {
		return ErrNotSent
	}
	m.ExpiredAt = nil
	if err := s.store.UpdateMessage(ctx, m); err != nil {
		return err
	}
	_, err := s.deliver(ctx, *m)
	return err
}

func (s *Service) Delete(ctx context.Context, m models.Message) error {
	if m.IsSent() {
		return ErrCannotDeleteSent
	}
	return s.store.DeleteMessage(ctx, m.ID)
}

// ResendActive delivers every active message to its new recipients.
func (s *Service) ResendActive(ctx context.Context) error {
	msgs, err := s.store.ActiveMessages(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range msgs {
		n, err := s.deliver(ctx, m)
		if err != nil {
			errs = append(errs, err)
		}
		if n > 0 {
			s.log.Info("message delivered to new recipients", zap.Int64("message_id", m.ID), zap.Int("count", n))
		}
	}
	return errors.Join(errs...)
}

// deliver sends m to its pending recipients. Failed recipients are logged, released and
// retried by the next run; the returned error covers store failures only.
func (s *Service) deliver(ctx context.Context, m models.Message) (int, error) {
	if !m.IsActive() {
		return 0, nil
	}
	sender, ok := s.senders[m.Channel]
	if !ok {
		return 0, fmt.Errorf("no sender for channel %q", m.Channel)
	}
	log := logging.Ctx(ctx, s.log).With(zap.Int64("message_id", m.ID), zap.String("channel", string(m.Channel)))

	people, err := s.store.PendingRecipients(ctx, m.ID)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, p := range people {
		now := s.now()
		claimed, err := s.store.ClaimDelivery(ctx, m.ID, p.ID, now, now.Add(-claimLease))
		if err != nil {
			return delivered, err
		}
		if !claimed {
			continue
		}

		err = sender.Send(ctx, p, m)
		if err != nil {
			if errors.Is(err, ErrUnreachable) {
				log.Warn("recipient unreachable", zap.Int64("person_id", p.ID))
			} else {
				log.Error("message delivery failed", zap.Int64("person_id", p.ID), zap.Error(err))
				observability.CaptureCtxErr(ctx, fmt.Errorf("deliver message %d to person %d: %w", m.ID, p.ID, err))
			}
			if err := s.store.ReleaseDelivery(ctx, m.ID, p.ID); err != nil {
				return delivered, err
			}
			continue
		}

		if err := s.store.MarkDelivered(ctx, m.ID, p.ID, s.now()); err != nil {
			return delivered, err
		}
		delivered++
		metrics.MessagesDelivered.WithLabelValues(string(m.Channel)).Inc()
	}
	return delivered, nil
}
