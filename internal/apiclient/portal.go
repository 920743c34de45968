package apiclient

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

// Content is an editable section such as mission or vision.
type Content struct {
	Section   string    `json:"section"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// ContentUpdate is the editable part of a section.
type ContentUpdate struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Tool is a link or file offered for a business phase.
type Tool struct {
	ID          string `json:"id"`
	Phase       string `json:"phase"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Document is an entry of the document repository.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy,omitempty"`
}

// AuditLog is a server-side audit record.
type AuditLog struct {
	ID     string    `json:"id"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Entity string    `json:"entity"`
	At     time.Time `json:"at"`
}

// GetContent fetches a content section.
func (c *Client) GetContent(section string) (*Content, error) {
	var out Content
	if err := c.do(request{method: http.MethodGet, path: "/content/" + url.PathEscape(section)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateContent saves a new version of a content section.
func (c *Client) UpdateContent(section string, update ContentUpdate) (*Content, error) {
	var out Content
	if err := c.do(request{method: http.MethodPut, path: "/content/" + url.PathEscape(section), body: update}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTools returns the tools of a business phase.
func (c *Client) ListTools(phase string) ([]Tool, error) {
	var out []Tool
	q := url.Values{"phase": []string{phase}}
	if err := c.do(request{method: http.MethodGet, path: "/tools", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListDocuments returns the document repository.
func (c *Client) ListDocuments() ([]Document, error) {
	var out []Document
	if err := c.do(request{method: http.MethodGet, path: "/documents"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListUsers returns every portal account.
func (c *Client) ListUsers() ([]domain.Identity, error) {
	var out []domain.Identity
	if err := c.do(request{method: http.MethodGet, path: "/users"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUserRole changes an account's role.
func (c *Client) UpdateUserRole(id string, role domain.Role) error {
	body := map[string]domain.Role{"role": role}
	return c.do(request{method: http.MethodPut, path: "/users/" + url.PathEscape(id) + "/role", body: body}, nil)
}

// ListAuditLogs returns the most recent audit records.
func (c *Client) ListAuditLogs(limit int) ([]AuditLog, error) {
	var out []AuditLog
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}
	if err := c.do(request{method: http.MethodGet, path: "/audit-logs", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
