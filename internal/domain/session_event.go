package domain

import "time"

// SessionEventKind enumerates audit entries recorded for browser sessions.
type SessionEventKind string

const (
	SessionEventStarted      SessionEventKind = "session_started"
	SessionEventEnded        SessionEventKind = "session_ended"
	SessionEventPatched      SessionEventKind = "identity_patched"
	SessionEventIdleWarning  SessionEventKind = "idle_warning"
	SessionEventAccessDenied SessionEventKind = "access_denied"
)

// LogoutReason records why a session was cleared.
type LogoutReason string

const (
	LogoutExplicit     LogoutReason = "explicit"
	LogoutIdle         LogoutReason = "idle"
	LogoutUnload       LogoutReason = "unload"
	LogoutUnauthorized LogoutReason = "unauthorized"
)

// SessionEvent is a persisted audit row.
type SessionEvent struct {
	ID         string
	SessionID  string
	Kind       SessionEventKind
	Reason     string
	IdentityID string
	Role       Role
	OccurredAt time.Time
}
