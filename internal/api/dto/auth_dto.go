package dto

import "github.com/spec-kit/dairy-portal/internal/domain"

// LoginRequest is the login form payload.
type LoginRequest struct {
	DocumentNumber string `json:"documentNumber" form:"documentNumber"`
	Password       string `json:"password" form:"password"`
}

// RegisterRequest is the sign-up form payload.
type RegisterRequest struct {
	Name           string `json:"name" form:"name"`
	Email          string `json:"email" form:"email"`
	DocumentType   string `json:"documentType" form:"documentType"`
	DocumentNumber string `json:"documentNumber" form:"documentNumber"`
}

// ChangePasswordRequest is the mandatory password change payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	Confirmation    string `json:"confirmation" form:"confirmation"`
}

// SessionResponse tells the browser where to go after an auth action.
type SessionResponse struct {
	Redirect string           `json:"redirect"`
	User     *domain.Identity `json:"user,omitempty"`
}
