package db

import (
	"context"
	"time"

	"github.com/kompassi/kompassi/internal/models"
)

const messageColumns = `m.id, m.recipient_id, m.channel, m.subject, m.body, m.sent_at, m.expired_at, m.created_at, m.updated_at`

func scanMessage(row scanner, m *models.Message) error {
	return row.Scan(&m.ID, &m.RecipientID, &m.Channel, &m.Subject, &m.Body, &m.SentAt, &m.ExpiredAt, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) messages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CreateRecipientGroup(ctx context.Context, g *models.RecipientGroup) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO recipient_groups (event_id, group_id, app_label, verbose_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, g.EventID, g.GroupID, g.AppLabel, g.Verbose).Scan(&g.ID)
}

func (s *Store) GetRecipientGroup(ctx context.Context, eventID, id int64) (models.RecipientGroup, error) {
	var g models.RecipientGroup
	err := s.q.QueryRowContext(ctx, `
		SELECT id, event_id, group_id, app_label, verbose_name
		FROM recipient_groups WHERE event_id = $1 AND id = $2
	`, eventID, id).Scan(&g.ID, &g.EventID, &g.GroupID, &g.AppLabel, &g.Verbose)
	return g, notFound(err)
}

func (s *Store) GetMessage(ctx context.Context, eventID, messageID int64) (models.Message, error) {
	var m models.Message
	err := scanMessage(s.q.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN recipient_groups rg ON rg.id = m.recipient_id
		WHERE rg.event_id = $1 AND m.id = $2
	`, eventID, messageID), &m)
	return m, notFound(err)
}

func (s *Store) EventMessages(ctx context.Context, eventID int64) ([]models.Message, error) {
	return s.messages(ctx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN recipient_groups rg ON rg.id = m.recipient_id
		WHERE rg.event_id = $1
		ORDER BY m.created_at DESC, m.id DESC
	`, eventID)
}

func (s *Store) ActiveMessages(ctx context.Context) ([]models.Message, error) {
	return s.messages(ctx, `
		SELECT `+messageColumns+` FROM messages m
		WHERE m.sent_at IS NOT NULL AND m.expired_at IS NULL
		ORDER BY m.id
	`)
}

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	return s.q.QueryRowContext(ctx, `
		INSERT INTO messages (recipient_id, channel, subject, body, sent_at, expired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, m.RecipientID, string(m.Channel), m.Subject, m.Body, m.SentAt, m.ExpiredAt).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) UpdateMessage(ctx context.Context, m *models.Message) error {
	err := s.q.QueryRowContext(ctx, `
		UPDATE messages SET
			recipient_id = $2, channel = $3, subject = $4, body = $5,
			sent_at = $6, expired_at = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, m.ID, m.RecipientID, string(m.Channel), m.Subject, m.Body, m.SentAt, m.ExpiredAt).Scan(&m.UpdatedAt)
	return notFound(err)
}

func (s *Store) DeleteMessage(ctx context.Context, messageID int64) error {
	return affectedOne(s.q.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, messageID))
}

// PendingRecipients lists the people of the message's group who have not received it.
func (s *Store) PendingRecipients(ctx context.Context, messageID int64) ([]models.Person, error) {
	return s.people(ctx, `
		SELECT `+personColumns+`
		FROM messages m
		JOIN recipient_groups rg ON rg.id = m.recipient_id
		JOIN user_groups ug ON ug.group_id = rg.group_id
		JOIN people p ON p.user_id = ug.user_id
		WHERE m.id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM person_messages pm
			WHERE pm.message_id = m.id AND pm.person_id = p.id AND pm.delivered_at IS NOT NULL
		  )
		ORDER BY p.id
	`, messageID)
}

// ClaimDelivery takes the delivery of (message, person) for the caller. An undelivered row
// claimed before staleBefore is taken over; a fresh claim or a delivered row is not.
func (s *Store) ClaimDelivery(ctx context.Context, messageID, personID int64, at, staleBefore time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO person_messages (message_id, person_id, claimed_at) VALUES ($1, $2, $3)
		ON CONFLICT (message_id, person_id) DO UPDATE SET claimed_at = EXCLUDED.claimed_at
		WHERE person_messages.delivered_at IS NULL AND person_messages.claimed_at < $4
	`, messageID, personID, at, staleBefore)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseDelivery drops an undelivered claim so the next run retries the person.
func (s *Store) ReleaseDelivery(ctx context.Context, messageID, personID int64) error {
	_, err := s.q.ExecContext(ctx, `
		DELETE FROM person_messages WHERE message_id = $1 AND person_id = $2 AND delivered_at IS NULL
	`, messageID, personID)
	return err
}

func (s *Store) MarkDelivered(ctx context.Context, messageID, personID int64, at time.Time) error {
	return affectedOne(s.q.ExecContext(ctx, `
		UPDATE person_messages SET delivered_at = $3 WHERE message_id = $1 AND person_id = $2
	`, messageID, personID, at))
}
