// Package devapi is a local stand-in for the management API's
// authentication and content endpoints, for development and demos.
package devapi

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/dairy-portal/internal/apiclient"
	"github.com/spec-kit/dairy-portal/internal/domain"
)

const userKey = "devapi_user"

// Config tunes the dev API.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type account struct {
	identity     domain.Identity
	passwordHash string
}

// Server keeps accounts and content in memory.
type Server struct {
	tokens     *tokenManager
	bcryptCost int
	logger     *zap.Logger

	mu       sync.RWMutex
	accounts map[string]*account
	byDoc    map[string]string
	content  map[string]apiclient.Content
	tools    []apiclient.Tool
	docs     []apiclient.Document
	audit    []apiclient.AuditLog
}

// New builds a server seeded with one administrator whose document number
// and password are both "1000".
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	s := &Server{
		tokens:     &tokenManager{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL},
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
		accounts:   make(map[string]*account),
		byDoc:      make(map[string]string),
		content:    make(map[string]apiclient.Content),
	}
	if _, err := s.createAccount(domain.Identity{
		Name:           "Administrador",
		Email:          "admin@lacteos.local",
		DocumentType:   "CC",
		DocumentNumber: "1000",
		Role:           domain.RoleAdmin,
		IsPasswordSet:  true,
	}); err != nil {
		return nil, err
	}
	s.seedCatalog()
	return s, nil
}

// App returns the fiber application serving the API.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"message": err.Error()})
		},
	})

	app.Post("/auth/login", s.login)
	app.Post("/auth/register", s.register)

	protected := app.Group("", s.authenticate)
	protected.Put("/auth/change-password", s.changePassword)
	protected.Get("/content/:section", s.getContent)
	protected.Put("/content/:section", s.requireRoles(domain.RoleAdmin, domain.RoleManager), s.putContent)
	protected.Get("/tools", s.listTools)
	protected.Get("/documents", s.listDocuments)
	protected.Get("/users", s.requireRoles(domain.RoleAdmin), s.listUsers)
	protected.Put("/users/:id/role", s.requireRoles(domain.RoleAdmin), s.updateRole)
	protected.Get("/audit-logs", s.requireRoles(domain.RoleAdmin), s.listAudit)
	return app
}

func (s *Server) createAccount(identity domain.Identity) (*account, error) {
	hash, err := hashPassword(identity.DocumentNumber, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	identity.ID = uuid.NewString()
	acc := &account{identity: identity, passwordHash: hash}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byDoc[identity.DocumentNumber]; exists {
		return nil, fiber.NewError(http.StatusConflict, "document number already registered")
	}
	s.accounts[identity.ID] = acc
	s.byDoc[identity.DocumentNumber] = identity.ID
	return acc, nil
}

func (s *Server) respondWithSession(c *fiber.Ctx, status int, acc *account) error {
	token, err := s.tokens.generate(acc.identity.ID)
	if err != nil {
		return err
	}
	s.mu.RLock()
	identity := acc.identity
	s.mu.RUnlock()
	return c.Status(status).JSON(apiclient.AuthResult{User: &identity, Token: token})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req apiclient.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	s.mu.RLock()
	acc, ok := s.accounts[s.byDoc[strings.TrimSpace(req.DocumentNumber)]]
	var hash, name string
	if ok {
		hash = acc.passwordHash
		name = acc.identity.Name
	}
	s.mu.RUnlock()

	if !ok || comparePassword(hash, req.Password) != nil {
		return fiber.NewError(http.StatusUnauthorized, "credenciales inválidas")
	}
	s.appendAudit(name, "login", "auth")
	return s.respondWithSession(c, http.StatusOK, acc)
}

func (s *Server) register(c *fiber.Ctx) error {
	var req apiclient.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" || req.Email == "" || req.DocumentNumber == "" {
		return fiber.NewError(http.StatusBadRequest, "name, email, documentNumber required")
	}

	acc, err := s.createAccount(domain.Identity{
		Name:           req.Name,
		Email:          req.Email,
		DocumentType:   req.DocumentType,
		DocumentNumber: strings.TrimSpace(req.DocumentNumber),
		Role:           domain.RoleService,
	})
	if err != nil {
		return err
	}
	s.appendAudit(req.Name, "register", "users")
	return s.respondWithSession(c, http.StatusCreated, acc)
}

func (s *Server) authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	userID, err := s.tokens.parse(parts[1])
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}

	s.mu.RLock()
	acc, ok := s.accounts[userID]
	s.mu.RUnlock()
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "unknown user")
	}
	c.Locals(userKey, acc)
	return c.Next()
}

func (s *Server) requireRoles(roles ...domain.Role) fiber.Handler {
	allowed := domain.NewRoleSet(roles...)
	return func(c *fiber.Ctx) error {
		acc := c.Locals(userKey).(*account)
		s.mu.RLock()
		role := acc.identity.Role
		s.mu.RUnlock()
		if !allowed.Contains(role) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

func (s *Server) changePassword(c *fiber.Ctx) error {
	var req apiclient.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if len(req.NewPassword) < 6 {
		return fiber.NewError(http.StatusBadRequest, "la nueva contraseña debe tener al menos 6 caracteres")
	}
	acc := c.Locals(userKey).(*account)

	s.mu.RLock()
	hash := acc.passwordHash
	s.mu.RUnlock()
	if err := comparePassword(hash, req.CurrentPassword); err != nil {
		return fiber.NewError(http.StatusBadRequest, "contraseña actual incorrecta")
	}

	newHash, err := hashPassword(req.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	acc.passwordHash = newHash
	acc.identity.IsPasswordSet = true
	name := acc.identity.Name
	s.mu.Unlock()

	s.appendAudit(name, "change-password", "auth")
	return c.JSON(fiber.Map{"message": "password updated"})
}

func (s *Server) getContent(c *fiber.Ctx) error {
	s.mu.RLock()
	content, ok := s.content[c.Params("section")]
	s.mu.RUnlock()
	if !ok {
		return fiber.NewError(http.StatusNotFound, "section not found")
	}
	return c.JSON(content)
}

func (s *Server) putContent(c *fiber.Ctx) error {
	var req apiclient.ContentUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	section := c.Params("section")
	acc := c.Locals(userKey).(*account)

	s.mu.Lock()
	editor := acc.identity.Name
	current, ok := s.content[section]
	if !ok {
		s.mu.Unlock()
		return fiber.NewError(http.StatusNotFound, "section not found")
	}
	current.Title = req.Title
	current.Body = req.Body
	current.Version++
	current.UpdatedAt = time.Now().UTC()
	current.UpdatedBy = editor
	s.content[section] = current
	s.mu.Unlock()

	s.appendAudit(current.UpdatedBy, "update", "content/"+section)
	return c.JSON(current)
}

func (s *Server) listTools(c *fiber.Ctx) error {
	phase := c.Query("phase")
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]apiclient.Tool, 0, len(s.tools))
	for _, tool := range s.tools {
		if phase == "" || tool.Phase == phase {
			out = append(out, tool)
		}
	}
	return c.JSON(out)
}

func (s *Server) listDocuments(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.docs)
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	s.mu.RLock()
	out := make([]domain.Identity, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc.identity)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentNumber < out[j].DocumentNumber })
	return c.JSON(out)
}

func (s *Server) updateRole(c *fiber.Ctx) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	caller := c.Locals(userKey).(*account)
	s.mu.Lock()
	acc, ok := s.accounts[c.Params("id")]
	if ok {
		acc.identity.Role = role
	}
	actor := caller.identity.Name
	s.mu.Unlock()
	if !ok {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	s.appendAudit(actor, "update-role", "users/"+c.Params("id"))
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) listAudit(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]apiclient.AuditLog, 0, limit)
	for i := len(s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return c.JSON(out)
}

func (s *Server) appendAudit(actor, action, entity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, apiclient.AuditLog{
		ID:     uuid.NewString(),
		Actor:  actor,
		Action: action,
		Entity: entity,
		At:     time.Now().UTC(),
	})
}

func (s *Server) seedCatalog() {
	now := time.Now().UTC()
	for _, section := range []struct{ key, title string }{
		{"mission", "Misión"},
		{"vision", "Visión"},
		{"diagnostics", "Diagnóstico"},
	} {
		s.content[section.key] = apiclient.Content{Section: section.key, Title: section.title, Version: 1, UpdatedAt: now}
	}
	s.tools = []apiclient.Tool{
		{ID: uuid.NewString(), Phase: "acopio", Name: "Registro de recolección", Kind: "link", URL: "https://example.com/acopio"},
		{ID: uuid.NewString(), Phase: "distribucion", Name: "Rutas de reparto", Kind: "file", URL: "/files/rutas.xlsx"},
		{ID: uuid.NewString(), Phase: "ventas", Name: "Lista de precios", Kind: "file", URL: "/files/precios.pdf"},
	}
	s.docs = []apiclient.Document{
		{ID: uuid.NewString(), Name: "Manual de calidad", Category: "calidad", URL: "/files/manual-calidad.pdf", UploadedAt: now},
	}
}
