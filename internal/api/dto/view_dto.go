package dto

import (
	"time"

	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/session"
)

// MenuEntry is a navigation link visible to the current role.
type MenuEntry struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// DashboardView is rendered at the portal root.
type DashboardView struct {
	User *domain.Identity `json:"user"`
	Menu []MenuEntry      `json:"menu"`
}

// SessionStateView is the browser's view of its session.
type SessionStateView struct {
	Initialized        bool             `json:"initialized"`
	Authenticated      bool             `json:"authenticated"`
	User               *domain.Identity `json:"user,omitempty"`
	IdleTimeoutSeconds int              `json:"idleTimeoutSeconds"`
	LastActivity       time.Time        `json:"lastActivity"`
	ExpiresAt          time.Time        `json:"expiresAt"`
}

// ActivityRequest batches interaction events reported by the page.
type ActivityRequest struct {
	Events []string `json:"events"`
}

// ActivityResponse reports how many events reset the idle deadline.
type ActivityResponse struct {
	Accepted int `json:"accepted"`
}

// NoticesView drains pending session notices.
type NoticesView struct {
	Notices []session.Notice `json:"notices"`
}

// ContentUpdateRequest edits a content section.
type ContentUpdateRequest struct {
	Title string `json:"title" form:"title"`
	Body  string `json:"body" form:"body"`
}

// RoleUpdateRequest changes an account's role.
type RoleUpdateRequest struct {
	Role string `json:"role" form:"role"`
}

// SessionEventView is a local session audit row.
type SessionEventView struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Kind       string    `json:"kind"`
	Reason     string    `json:"reason,omitempty"`
	IdentityID string    `json:"identityId,omitempty"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
