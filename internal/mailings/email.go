package mailings

import (
	"context"

	"go.uber.org/zap"

	"github.com/kompassi/kompassi/internal/models"
)

// LogSender stands in for email transport, which lives outside this service. It records
// each delivery in the log.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, to models.Person, m models.Message) error {
	if to.Email == "" {
		return ErrUnreachable
	}
	s.Log.Info("email queued",
		zap.Int64("message_id", m.ID),
		zap.Int64("person_id", to.ID),
		zap.String("to", to.Email),
		zap.String("subject", m.Subject),
	)
	return nil
}
