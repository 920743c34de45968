package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/dairy-portal/internal/domain"
)

// LoginRequest is the credential exchange payload.
type LoginRequest struct {
	DocumentNumber string `json:"documentNumber"`
	Password       string `json:"password"`
}

// RegisterRequest creates an account whose initial password is its document number.
type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	DocumentType   string `json:"documentType"`
	DocumentNumber string `json:"documentNumber"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	User  *domain.Identity `json:"user"`
	Token string           `json:"token"`
}

func (r *AuthResult) validate() error {
	if r.User == nil || r.Token == "" {
		return fmt.Errorf("%w: missing user or token", ErrUnexpectedResponse)
	}
	if !r.User.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrUnexpectedResponse, r.User.Role)
	}
	return nil
}

// Login exchanges a document number and password for an identity and token.
func (c *Client) Login(req LoginRequest) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(request{method: http.MethodPost, path: "/auth/login", body: req, credentialCheck: true}, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(req RegisterRequest) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(request{method: http.MethodPost, path: "/auth/register", body: req}, &out); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword updates the session holder's password. A wrong current
// password yields ErrInvalidCredentials; an expired session ErrUnauthorized.
func (c *Client) ChangePassword(req ChangePasswordRequest) error {
	err := c.do(request{method: http.MethodPut, path: "/auth/change-password", body: req}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
		return ErrInvalidCredentials
	}
	return err
}
