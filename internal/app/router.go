package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/srms-edu/srms/internal/admin"
	"github.com/srms-edu/srms/internal/auth"
	"github.com/srms-edu/srms/internal/guest"
	"github.com/srms-edu/srms/internal/instructor"
	"github.com/srms-edu/srms/internal/observability"
	"github.com/srms-edu/srms/internal/rolereq"
	"github.com/srms-edu/srms/internal/shared"
	"github.com/srms-edu/srms/internal/student"
	"github.com/srms-edu/srms/internal/ta"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	GuestHandler       *guest.Handler
	RoleRequestHandler *rolereq.Handler
	StudentHandler     *student.Handler
	InstructorHandler  *instructor.Handler
	TAHandler          *ta.Handler
	AdminHandler       *admin.Handler
}

// NewRouter constructs the chi.Router with SRMS defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	gate := shared.Gate{Logger: params.Logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Logged-in users land on their role's home page; everyone else on /login.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if ident := shared.IdentityFromContext(r.Context()); ident != nil {
			http.Redirect(w, r, ident.Role.HomePath(), http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r, gate)
		r.Route("/public", func(r chi.Router) {
			params.GuestHandler.MountRoutes(r)
		})
		r.Route("/role-requests", func(r chi.Router) {
			params.RoleRequestHandler.MountRoutes(r, gate)
		})
		r.Route("/student", func(r chi.Router) {
			params.StudentHandler.MountRoutes(r, gate)
		})
		r.Route("/instructor", func(r chi.Router) {
			params.InstructorHandler.MountRoutes(r, gate)
		})
		r.Route("/ta", func(r chi.Router) {
			params.TAHandler.MountRoutes(r, gate)
		})
		r.Route("/admin", func(r chi.Router) {
			params.AdminHandler.MountRoutes(r, gate)
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
