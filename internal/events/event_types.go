package events

import (
	"time"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted  EventType = EventType(domain.SessionEventStarted)
	EventSessionEnded    EventType = EventType(domain.SessionEventEnded)
	EventIdentityPatched EventType = EventType(domain.SessionEventPatched)
	EventIdleWarning     EventType = EventType(domain.SessionEventIdleWarning)
	EventAccessDenied    EventType = EventType(domain.SessionEventAccessDenied)
)

// Actor encapsulates the identity behind an event, when known.
type Actor struct {
	IdentityID string      `json:"identity_id,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
}

// Event represents a session lifecycle event.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionEndedPayload payload.
type SessionEndedPayload struct {
	Reason domain.LogoutReason `json:"reason"`
}

// IdentityPatchedPayload payload.
type IdentityPatchedPayload struct {
	IsPasswordSet bool `json:"is_password_set"`
}

// AccessDeniedPayload payload.
type AccessDeniedPayload struct {
	Path string `json:"path"`
}

// ToSessionEvent flattens an event into an audit row.
func (e Event) ToSessionEvent() domain.SessionEvent {
	reason := ""
	switch p := e.Payload.(type) {
	case SessionEndedPayload:
		reason = string(p.Reason)
	case AccessDeniedPayload:
		reason = p.Path
	}
	return domain.SessionEvent{
		ID:         e.ID,
		SessionID:  e.SessionID,
		Kind:       domain.SessionEventKind(e.Type),
		Reason:     reason,
		IdentityID: e.Actor.IdentityID,
		Role:       e.Actor.Role,
		OccurredAt: e.Timestamp,
	}
}
