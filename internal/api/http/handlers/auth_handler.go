package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/api/dto"
	"github.com/spec-kit/dairy-portal/internal/apiclient"
	"github.com/spec-kit/dairy-portal/internal/domain"
	"github.com/spec-kit/dairy-portal/internal/guard"
	apperrors "github.com/spec-kit/dairy-portal/pkg/util"
)

const (
	invalidLoginMessage   = "Número de documento o contraseña incorrectos."
	invalidCurrentMessage = "La contraseña actual no es correcta."
	minPasswordLength     = 6
)

// AuthHandler exposes login, registration, password change and logout.
type AuthHandler struct {
	api    *apiclient.Client
	paths  guard.Paths
	logger *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(api *apiclient.Client, paths guard.Paths, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{api: api, paths: paths, logger: logger}
}

// LoginView handles GET /login.
func (h *AuthHandler) LoginView(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	state := entry.Store().State()
	if state.Initialized && state.Authenticated() {
		return c.Redirect(h.paths.Home, fiber.StatusSeeOther)
	}
	return c.JSON(fiber.Map{"view": "login", "notices": entry.Notices()})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if req.DocumentNumber == "" || req.Password == "" {
		return apperrors.NewValidationError("documentNumber and password required", nil)
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}

	res, err := h.api.Login(apiclient.LoginRequest{DocumentNumber: req.DocumentNumber, Password: req.Password})
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized(invalidLoginMessage)
		}
		return mapAPIError(c, h.paths, err)
	}

	if err := entry.Store().Login(c.UserContext(), res.User, res.Token); err != nil {
		return apperrors.NewBadGateway(err)
	}
	return h.afterLogin(c, res.User)
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.DocumentNumber) == "" {
		return apperrors.NewValidationError("name, email and documentNumber required", nil)
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}

	res, err := h.api.Register(apiclient.RegisterRequest{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		DocumentType:   req.DocumentType,
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
	})
	if err != nil {
		return mapAPIError(c, h.paths, err)
	}

	if err := entry.Store().Login(c.UserContext(), res.User, res.Token); err != nil {
		return apperrors.NewBadGateway(err)
	}
	c.Status(http.StatusCreated)
	return h.afterLogin(c, res.User)
}

func (h *AuthHandler) afterLogin(c *fiber.Ctx, user *domain.Identity) error {
	next := h.paths.Home
	if !user.IsPasswordSet {
		next = h.paths.PasswordChange
	}
	h.logger.Info("login", zap.String("identity_id", user.ID), zap.String("role", string(user.Role)))
	return respondRedirect(c, next, dto.SessionResponse{Redirect: next, User: user})
}

// ChangePasswordView handles GET /change-password.
func (h *AuthHandler) ChangePasswordView(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	user := entry.Store().State().Identity
	return c.JSON(fiber.Map{
		"view":     "change-password",
		"required": user != nil && !user.IsPasswordSet,
	})
}

// ChangePassword handles PUT /change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || len(req.NewPassword) < minPasswordLength {
		return apperrors.NewValidationError("currentPassword and a newPassword of at least 6 characters required", nil)
	}
	if req.Confirmation != "" && req.Confirmation != req.NewPassword {
		return apperrors.NewValidationError("password confirmation does not match", nil)
	}
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}

	err = sessionClient(h.api, entry).ChangePassword(apiclient.ChangePasswordRequest{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		if errors.Is(err, apiclient.ErrInvalidCredentials) {
			return apperrors.NewValidationError(invalidCurrentMessage, nil)
		}
		return mapAPIError(c, h.paths, err)
	}

	set := true
	if err := entry.Store().PatchIdentity(c.UserContext(), domain.IdentityPatch{IsPasswordSet: &set}); err != nil {
		return guard.Redirect(c, h.paths.Login)
	}
	return respondRedirect(c, h.paths.Home, dto.SessionResponse{Redirect: h.paths.Home, User: entry.Store().State().Identity})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	entry, err := entryFrom(c)
	if err != nil {
		return err
	}
	entry.Store().Logout(c.UserContext(), domain.LogoutExplicit)
	return respondRedirect(c, h.paths.Login, dto.SessionResponse{Redirect: h.paths.Login})
}
