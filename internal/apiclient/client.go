// Package apiclient is the portal's thin client for the remote management API.
// Every call is decorated with the session's bearer credential in one place,
// and authorization failures are reported through a single hook.
package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized means the API rejected the credential (401/403).
	ErrUnauthorized = errors.New("apiclient: credential rejected")
	// ErrInvalidCredentials means a login or password change was refused.
	ErrInvalidCredentials = errors.New("apiclient: invalid credentials")
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("apiclient: api unavailable")
	// ErrUnexpectedResponse means the API answered with a body we cannot use.
	ErrUnexpectedResponse = errors.New("apiclient: unexpected response")
)

// APIError is a non-authorization failure reported by the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

// TokenSource yields the current bearer credential.
type TokenSource func() string

// Client talks to the management API. The zero hooks make it anonymous.
type Client struct {
	baseURL        string
	timeout        time.Duration
	logger         *zap.Logger
	token          TokenSource
	onUnauthorized func()
}

// New builds an anonymous client.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// WithSession returns a copy that authenticates with token and invokes
// onUnauthorized whenever the API answers 401 or 403.
func (c *Client) WithSession(token TokenSource, onUnauthorized func()) *Client {
	cp := *c
	cp.token = token
	cp.onUnauthorized = onUnauthorized
	return &cp
}

type request struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	// credentialCheck marks auth endpoints where 401 means bad credentials,
	// not an expired session.
	credentialCheck bool
}

func (c *Client) do(req request, out interface{}) error {
	agent := fiber.AcquireAgent()
	r := agent.Request()
	r.Header.SetMethod(req.method)

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	r.SetRequestURI(target)

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != nil {
		if token := c.token(); token != "" {
			agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	if req.body != nil {
		agent.JSON(req.body)
	}
	if c.timeout > 0 {
		agent.Timeout(c.timeout)
	}

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		c.logger.Warn("api request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Errors("errors", errs))
		return fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
	}

	switch {
	case req.credentialCheck && (status == fiber.StatusUnauthorized || status == fiber.StatusBadRequest):
		return ErrInvalidCredentials
	case status == fiber.StatusUnauthorized || status == fiber.StatusForbidden:
		c.logger.Info("api rejected credential", zap.String("path", req.path), zap.Int("status", status))
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	case status >= 400:
		return &APIError{Status: status, Message: errorMessage(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Message != "" {
		return payload.Message
	}
	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil && msg != "" {
		return msg
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}
