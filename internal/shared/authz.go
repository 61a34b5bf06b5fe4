package shared

import (
	"log/slog"
	"net/http"
)

// Gate rejects requests whose session role falls outside a route's fixed
// allowed-role set. It runs before any handler logic, has no side effects
// beyond the reject response, and never reaches the remote layer.
type Gate struct {
	Logger *slog.Logger
}

// RequireAPI guards a JSON route: 401 without an identity, 403 when the
// identity's role is neither in the allowed set nor able to act as a member
// of it through the static hierarchy.
func (g Gate) RequireAPI(allowed ...Role) func(http.Handler) http.Handler {
	set := RoleSet(allowed)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil {
				Fail(w, http.StatusUnauthorized, "Not logged in")
				return
			}
			if !set.Allows(ident.Role) {
				if g.Logger != nil {
					g.Logger.Warn("role rejected",
						slog.String("path", r.URL.Path),
						slog.String("role", string(ident.Role)))
				}
				Fail(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireExact guards a JSON route without honoring the act-as hierarchy;
// used where elevation is deliberately not transitive, e.g. decrypted
// personal data readable only by its owner role.
func (g Gate) RequireExact(allowed ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil {
				Fail(w, http.StatusUnauthorized, "Not logged in")
				return
			}
			for _, role := range allowed {
				if ident.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			Fail(w, http.StatusForbidden, "Forbidden")
		})
	}
}

// RequirePage guards an HTML route: unauthenticated requests go to /login,
// wrong-role requests go to the session role's home path.
func (g Gate) RequirePage(allowed ...Role) func(http.Handler) http.Handler {
	set := RoleSet(allowed)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if !set.Allows(ident.Role) {
				http.Redirect(w, r, ident.Role.HomePath(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
