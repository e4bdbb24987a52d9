// Package audit implements append-only structured records of
// authentication events and denied decisions, delivered through a bounded
// in-memory queue so that auditing can never make an authentication or
// authorization operation fail. The record shape and the
// slog-based sink are adapted from the prior service's JSONAuditLogger
// (internal/audit/audit.go); the bounded-channel delivery and the
// synthetic audit.dropped record are new, required by the explicit
// overflow policy which the prior service's synchronous logger did not need.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the events the audit trail must observe.
type EventKind string

const (
	EventSignInSuccess       EventKind = "auth.signin.success"
	EventSignInFailed        EventKind = "auth.signin.failed"
	EventSignOut             EventKind = "auth.signout"
	EventSignOutAll          EventKind = "auth.signout_all"
	EventRefreshRotated      EventKind = "auth.refresh.rotated"
	EventRefreshTheft        EventKind = "auth.refresh.theft_detected"
	EventPasswordResetDone   EventKind = "auth.password.reset_completed"
	EventPasswordChanged     EventKind = "auth.password.changed"
	EventAccountDeactivated  EventKind = "auth.account.deactivated"
	EventDecisionDenied      EventKind = "authz.decision.denied"
	EventQueueOverflow       EventKind = "audit.dropped"
)

// Record is a single audit entry. It must never carry a password, token
// plaintext, or verifier string.
type Record struct {
	Kind          EventKind
	PrincipalID   *uuid.UUID
	CorrelationID string
	At            time.Time
	Payload       map[string]any
}

// Sink is the append-only destination audit records are written to.
type Sink interface {
	Write(ctx context.Context, rec Record)
}

// SlogSink writes records as structured JSON/text via slog, tagged so log
// aggregators can route them to a separate audit index, following the
// teacher's "log_type: AUDIT_TRAIL" marker convention.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(ctx context.Context, rec Record) {
	attrs := []any{
		slog.String("log_type", "audit_trail"),
		slog.String("event", string(rec.Kind)),
		slog.String("correlation_id", rec.CorrelationID),
		slog.Time("at", rec.At.UTC()),
	}
	if rec.PrincipalID != nil {
		attrs = append(attrs, slog.String("principal_id", rec.PrincipalID.String()))
	}
	for k, v := range rec.Payload {
		attrs = append(attrs, slog.Any("meta_"+k, v))
	}
	s.logger.InfoContext(ctx, "audit_event", attrs...)
}
