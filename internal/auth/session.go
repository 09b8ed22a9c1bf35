package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

const principalSessionKey = "principal"

func storePrincipal(sess *shared.Session, p *Principal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	sess.SetUser(strconv.FormatInt(p.UserID, 10))
	sess.Set(principalSessionKey, string(data))
	return nil
}

// PrincipalFromSession decodes the principal stored at login. It returns nil
// for anonymous sessions.
func PrincipalFromSession(sess *shared.Session) (*Principal, error) {
	if sess == nil || sess.User() == "" {
		return nil, nil
	}
	raw := sess.Get(principalSessionKey)
	if raw == "" {
		return nil, nil
	}
	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the request principal or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// SessionPrincipal lifts the session principal into the request context. A
// corrupt payload downgrades the session to anonymous.
func SessionPrincipal(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			p, err := PrincipalFromSession(sess)
			if err != nil {
				if logger != nil {
					logger.Warn("decode session principal", slog.Any("error", err))
				}
				sess.Clear()
				p = nil
			}
			if p != nil {
				r = r.WithContext(ContextWithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}
