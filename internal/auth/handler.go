package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Handler wires HTTP endpoints for authentication and the unified /api/me
// profile surface.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	r.Post("/login", h.handleLogin)
	r.Post("/login/guest", h.handleGuestLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.With(gate.RequireAPI(shared.RoleAdmin, shared.RoleInstructor, shared.RoleTA, shared.RoleStudent)).
		Post("/me", h.handleMeUpdate)
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" || input.Password == "" {
		shared.Fail(w, http.StatusBadRequest, "Missing username/password")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	ident, err := h.service.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		if sess != nil {
			sess.ClearIdentity()
		}
		if errors.Is(err, shared.ErrInvalidCredentials) {
			shared.Fail(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		if remote, ok := gateway.AsRemoteError(err); ok {
			shared.Fail(w, http.StatusBadRequest, remote.Message)
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if sess == nil {
		h.logger.Error("session missing during login")
		shared.Fail(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	sess.SetIdentity(*ident)

	shared.OK(w, map[string]any{
		"user":     ident,
		"redirect": ident.Role.HomePath(),
	})
}

func (h *Handler) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		shared.Fail(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	ident := shared.Identity{Role: shared.RoleGuest, Clearance: 1}
	sess.SetIdentity(ident)
	shared.OK(w, map[string]any{
		"user":     ident,
		"redirect": ident.Role.HomePath(),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	shared.OK(w, map[string]any{"redirect": "/login"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		shared.Fail(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	shared.OK(w, map[string]any{"user": ident})
}

type meUpdateInput struct {
	FullName   string  `json:"full_name" validate:"required"`
	Email      string  `json:"email" validate:"required,email"`
	DOB        *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Department *string `json:"department"`
}

func (h *Handler) handleMeUpdate(w http.ResponseWriter, r *http.Request) {
	var input meUpdateInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	if err := h.validator.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Full name and email are required.")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	if err := h.service.EditOwnProfile(r.Context(), ident, input.FullName, input.Email, input.DOB, input.Department); err != nil {
		if remote, ok := gateway.AsRemoteError(err); ok {
			shared.Fail(w, http.StatusBadRequest, remote.Message)
			return
		}
		h.logger.Error("edit own profile", slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Profile update failed")
		return
	}
	shared.OK(w, nil)
}
