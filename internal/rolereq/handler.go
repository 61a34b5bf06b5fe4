package rolereq

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// upgradeTargets limits which roles each role may request an upgrade to.
var upgradeTargets = map[shared.Role][]shared.Role{
	shared.RoleStudent:    {shared.RoleTA, shared.RoleInstructor, shared.RoleAdmin},
	shared.RoleTA:         {shared.RoleInstructor, shared.RoleAdmin},
	shared.RoleInstructor: {shared.RoleAdmin},
}

// Handler accepts role upgrade requests; approval happens on the admin
// surface.
type Handler struct {
	logger   *slog.Logger
	invoker  gateway.Invoker
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, invoker gateway.Invoker) *Handler {
	return &Handler{logger: logger, invoker: invoker, validate: validator.New()}
}

// MountRoutes registers role request routes.
func (h *Handler) MountRoutes(r chi.Router, gate shared.Gate) {
	r.With(gate.RequireAPI(shared.RoleStudent, shared.RoleTA, shared.RoleInstructor)).
		Post("/", h.submit)
}

type submitInput struct {
	RequestedRole string `json:"requested_role" validate:"required"`
	Reason        string `json:"reason" validate:"required,min=5"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var input submitInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	input.RequestedRole = strings.TrimSpace(input.RequestedRole)
	input.Reason = strings.TrimSpace(input.Reason)
	if err := h.validate.Struct(input); err != nil {
		shared.Fail(w, http.StatusBadRequest, "Please enter a reason (min 5 characters).")
		return
	}

	ident := shared.IdentityFromContext(r.Context())
	requested, ok := shared.ParseRole(input.RequestedRole)
	if !ok || !allowedTarget(ident.Role, requested) {
		shared.Fail(w, http.StatusBadRequest, "Invalid requested role.")
		return
	}

	_, err := h.invoker.Invoke(r.Context(), ident, "sp_submit_role_request",
		ident.Username, string(requested), input.Reason)
	if err != nil {
		if remote, ok := gateway.AsRemoteError(err); ok {
			shared.Fail(w, http.StatusBadRequest, remote.Message)
			return
		}
		h.logger.Error("submit role request", slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Could not submit request")
		return
	}
	shared.OK(w, nil)
}

func allowedTarget(actor, requested shared.Role) bool {
	for _, t := range upgradeTargets[actor] {
		if t == requested {
			return true
		}
	}
	return false
}
