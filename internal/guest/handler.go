package guest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/srms-edu/srms/internal/gateway"
	"github.com/srms-edu/srms/internal/shared"
)

// Handler serves the public course catalogue. No session is required; the
// view exposes only columns marked public.
type Handler struct {
	logger  *slog.Logger
	invoker gateway.Invoker
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, invoker gateway.Invoker) *Handler {
	return &Handler{logger: logger, invoker: invoker}
}

// MountRoutes registers public routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/courses", h.listCourses)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	result, err := h.invoker.View(r.Context(), shared.IdentityFromContext(r.Context()), "vw_public_courses")
	if err != nil {
		h.logger.Error("list public courses", slog.Any("error", err))
		shared.Fail(w, http.StatusInternalServerError, "Could not load courses")
		return
	}
	shared.OK(w, map[string]any{"rows": result.RowsOrEmpty()})
}
