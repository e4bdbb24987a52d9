package audit

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SentrySink forwards only the highest-signal events (theft detection and
// queue overflow) to Sentry as a secondary destination, alongside the
// primary log-based Sink. Grounded on the prior service's sentry scope helpers
// (internal/api/middleware/sentry.go).
type SentrySink struct {
	next Sink
}

func NewSentrySink(next Sink) *SentrySink {
	return &SentrySink{next: next}
}

func (s *SentrySink) Write(ctx context.Context, rec Record) {
	s.next.Write(ctx, rec)

	switch rec.Kind {
	case EventRefreshTheft, EventQueueOverflow:
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("audit_event", string(rec.Kind))
			if rec.PrincipalID != nil {
				scope.SetUser(sentry.User{ID: rec.PrincipalID.String()})
			}
			for k, v := range rec.Payload {
				scope.SetExtra(k, v)
			}
			sentry.CaptureMessage(string(rec.Kind))
		})
	}
}

var _ Sink = (*SentrySink)(nil)
