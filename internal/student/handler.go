package student

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Handler serves the student panel. Row-level reach (a student only ever
// sees their own rows) is enforced by the database policies through the
// propagated session context; the handler only shapes requests.
type Handler struct {
	logger        *slog.Logger
	invoker       gateway.Invoker
	encryptionKey string
	validate      *validator.Validate
}

// NewHandler constructs a Handler. encryptionKey unlocks the pgcrypto-backed
// own-data view; empty disables that route's decryption.
func NewHandler(logger *slog.Logger, invoker gateway.Invoker, encryptionKey string) *Handler {
	return &Handler{logger: logger, invoker: invoker, encryptionKey: encryptionKey, validate: validator.New()}
}

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAPI(shared.RoleStudent))
		r.Get("/profile", h.profile)
		r.Post("/profile/edit", h.editProfile)
		r.Get("/grades", h.grades)
		r.Get("/attendance", h.attendance)
	})
	// Own-data is decrypted personal data; admin act-as does not extend here.
	r.With(gate.RequireExact(shared.RoleStudent)).Get("/own-data", h.ownData)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_view_student_profile",
		string(ident.Role), ident.Username, (*int64)(nil))
	if err != nil {
		h.fail(w, err, "load profile")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type editProfileInput struct {
	StudentID  *int64 `json:"student_id"`
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required"`
}

func (h *Handler) editProfile(w http.ResponseWriter, r *http.Request) {
	var input editProfileInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.FullName = strings.TrimSpace(input.FullName)
	input.Email = strings.TrimSpace(input.Email)
	input.Department = strings.TrimSpace(input.Department)
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Full name, email, and department are required.")
		return
	}

	// A student edits their own row; an admin may name any target. The
	// procedure rejects out-of-reach targets.
	ident := shared.IdentityFromContext(r.Context())
	_, err := h.invoker.Invoke(r.Context(), ident, "sp_edit_student_profile",
		string(ident.Role), ident.Username, input.StudentID, input.FullName, input.Email, input.Department)
	if err != nil {
		h.fail(w, err, "edit profile")
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) ownData(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	opts := []gateway.ViewOption{}
	if h.encryptionKey != "" {
		opts = append(opts, gateway.WithEncryptionKey(h.encryptionKey))
	}
	result, err := h.invoker.View(r.Context(), ident, "vw_student_own_data", opts...)
	if err != nil {
		h.fail(w, err, "load own data")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

func (h *Handler) grades(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_view_grades",
		string(ident.Role), ident.Username)
	if err != nil {
		h.fail(w, err, "load grades")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

func (h *Handler) attendance(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.invoker.Invoke(r.Context(), ident, "sp_view_attendance",
		string(ident.Role), ident.Username, (*int64)(nil), (*int64)(nil))
	if err != nil {
		h.fail(w, err, "load attendance")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	if remote, ok := gateway.AsRemoteError(err); ok {
		shared.Fail(w, http.StatusBadRequest, remote.Message)
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	shared.Fail(w, http.StatusInternalServerError, "Operation failed")
}
