package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Middleware wires the auth guards into chi route groups.
type Middleware struct {
	Logger *slog.Logger
}

// RequireLogin admits any authenticated principal.
func (m Middleware) RequireLogin() func(http.Handler) http.Handler {
	return m.enforce("login", auth.RequireLogin)
}

// RequireAdmin admits administrators only.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.enforce("admin", auth.RequireAdmin)
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := shared.NormalizePermissions(perms)
	return m.enforce("any:"+strings.Join(normalized, ","), func(p *auth.Principal) auth.Decision {
		if len(normalized) == 0 {
			return auth.RequireLogin(p)
		}
		decision := auth.Forbidden
		for _, perm := range normalized {
			if decision = auth.RequirePermission(p, perm); decision != auth.Forbidden {
				return decision
			}
		}
		return decision
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := shared.NormalizePermissions(perms)
	return m.enforce("all:"+strings.Join(normalized, ","), func(p *auth.Principal) auth.Decision {
		if len(normalized) == 0 {
			return auth.RequireLogin(p)
		}
		for _, perm := range normalized {
			if decision := auth.RequirePermission(p, perm); decision != auth.Allowed {
				return decision
			}
		}
		return auth.Allowed
	})
}

func (m Middleware) enforce(name string, guard func(*auth.Principal) auth.Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			switch decision := guard(principal); decision {
			case auth.Allowed:
				next.ServeHTTP(w, r)
			case auth.Unauthenticated:
				if sess := shared.SessionFromContext(r.Context()); sess != nil {
					sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: shared.UserSafeMessage(decision.Err())})
				}
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			default:
				if m.Logger != nil {
					m.Logger.Warn("rbac denied",
						slog.String("guard", name),
						slog.String("username", principal.Username),
						slog.String("path", r.URL.Path))
				}
				http.Error(w, shared.UserSafeMessage(decision.Err()), http.StatusForbidden)
			}
		})
	}
}
