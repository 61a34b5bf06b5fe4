package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

const defaultAuditLimit = 200

// Handler serves the admin panel: user management, role request decisions
// and the audit trail.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers admin routes. Every route is Admin only; the
// hierarchy grants no role the admin capacity.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAPI(shared.RoleAdmin))
		r.Get("/users", h.listUsers)
		r.Post("/users", h.createUser)
		r.Post("/users/{username}/role", h.updateUserRole)
		r.Get("/role-requests/pending", h.pendingRoleRequests)
		r.Post("/role-requests/{id}/approve", h.approveRoleRequest)
		r.Post("/role-requests/{id}/deny", h.denyRoleRequest)
		r.Get("/audit", h.auditLogs)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.service.ListUsers(r.Context(), ident)
	if err != nil {
		h.fail(w, err, "list users")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type createUserInput struct {
	Username     string `json:"username" validate:"required"`
	Password     string `json:"password" validate:"required,min=8"`
	Role         string `json:"role" validate:"required"`
	Clearance    *int   `json:"clearance" validate:"omitempty,gte=0"`
	StudentPKID  *int64 `json:"student_pk_id"`
	InstructorID *int64 `json:"instructor_id"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var input createUserInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Role = strings.TrimSpace(input.Role)
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing username/password/role")
		return
	}
	role, ok := shared.ParseRole(input.Role)
	if !ok {
		shared.Fail(w, http.StatusBadRequest, "Invalid role.")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	if err := h.service.CreateUser(r.Context(), ident, input.Username, input.Password, role,
		input.Clearance, input.StudentPKID, input.InstructorID); err != nil {
		h.fail(w, err, "create user")
		return
	}
	shared.OK(w, nil)
}

type updateRoleInput struct {
	Role      string `json:"role" validate:"required"`
	Clearance *int   `json:"clearance" validate:"omitempty,gte=0"`
}

func (h *Handler) updateUserRole(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "username")
	if target == "" {
		shared.Fail(w, http.StatusBadRequest, "Missing username")
		return
	}

	var input updateRoleInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.Role = strings.TrimSpace(input.Role)
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Missing role")
		return
	}
	role, ok := shared.ParseRole(input.Role)
	if !ok {
		shared.Fail(w, http.StatusBadRequest, "Invalid role.")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	if err := h.service.UpdateUserRole(r.Context(), ident, target, role, input.Clearance); err != nil {
		h.fail(w, err, "update user role")
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) pendingRoleRequests(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	result, err := h.service.PendingRoleRequests(r.Context(), ident)
	if err != nil {
		h.fail(w, err, "pending role requests")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}

type decisionInput struct {
	Comments *string `json:"comments"`
}

func (h *Handler) approveRoleRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRoleRequest(w, r, h.service.ApproveRoleRequest, "approve role request")
}

func (h *Handler) denyRoleRequest(w http.ResponseWriter, r *http.Request) {
	h.decideRoleRequest(w, r, h.service.DenyRoleRequest, "deny role request")
}

func (h *Handler) decideRoleRequest(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, ident *shared.Identity, id int64, comments *string) error, op string) {
	requestID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.Fail(w, http.StatusBadRequest, "request id must be an integer.")
		return
	}

	var input decisionInput
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &input); err != nil {
			shared.Fail(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	ident := shared.IdentityFromContext(r.Context())
	if err := decide(r.Context(), ident, requestID, input.Comments); err != nil {
		h.fail(w, err, op)
		return
	}
	shared.OK(w, nil)
}

func (h *Handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v, err := shared.QueryInt64(r, "limit"); err != nil {
		shared.Fail(w, http.StatusBadRequest, err.Error())
		return
	} else if v != nil {
		if *v <= 0 || *v > 1000 {
			shared.Fail(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = int(*v)
	}

	ident := shared.IdentityFromContext(r.Context())
	result, err := h.service.AuditLogs(r.Context(), ident, limit)
	if err != nil {
		h.fail(w, err, "audit logs")
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
