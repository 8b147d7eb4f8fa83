package models

import "time"

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
)

// RecipientGroup is a named set of people computed from a permission group.
type RecipientGroup struct {
	ID       int64  `db:"id" json:"id"`
	EventID  int64  `db:"event_id" json:"event_id"`
	GroupID  int64  `db:"group_id" json:"group_id"`
	AppLabel string `db:"app_label" json:"app_label"`
	Verbose  string `db:"verbose_name" json:"verbose_name"`
}

type Message struct {
	ID          int64      `db:"id" json:"id"`
	RecipientID int64      `db:"recipient_id" json:"recipient_id"`
	Channel     Channel    `db:"channel" json:"channel"`
	Subject     string     `db:"subject" json:"subject"`
	Body        string     `db:"body" json:"body"`
	SentAt      *time.Time `db:"sent_at" json:"sent_at"`
	ExpiredAt   *time.Time `db:"expired_at" json:"expired_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

func (m Message) IsSent() bool    { return m.SentAt != nil }
func (m Message) IsExpired() bool { return m.ExpiredAt != nil }

// IsActive reports whether new recipients still receive the message automatically.
func (m Message) IsActive() bool { return m.IsSent() && !m.IsExpired() }

type PersonMessage struct {
	ID          int64      `db:"id" json:"id"`
	MessageID   int64      `db:"message_id" json:"message_id"`
	PersonID    int64      `db:"person_id" json:"person_id"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at"`
}
