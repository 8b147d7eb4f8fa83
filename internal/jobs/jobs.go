package jobs

import (
	"context"
	"time"
)

const (
	BadgesCleanup  = "badges_cleanup"
	MessagesResend = "messages_resend"
)

type BadgeCleaner interface {
	Cleanup(ctx context.Context) error
}

type MessageResender interface {
	ResendActive(ctx context.Context) error
}

type Intervals struct {
	BadgeCleanup  time.Duration
	MessageResend time.Duration
}

// Start schedules the periodic maintenance jobs. A nil service skips its job.
func Start(r *Runner, iv Intervals, badges BadgeCleaner, messages MessageResender) {
	if badges != nil {
		r.Every(iv.BadgeCleanup, BadgesCleanup, badges.Cleanup)
	}
	if messages != nil {
		r.Every(iv.MessageResend, MessagesResend, messages.ResendActive)
	}
}
