package auth

import "github.com/pecsa/pecsa-admin/internal/shared"

// Decision is the outcome of an authorization guard.
type Decision int

const (
	Allowed Decision = iota
	Unauthenticated
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Err maps the decision onto the shared error taxonomy; nil when allowed.
func (d Decision) Err() error {
	switch d {
	case Allowed:
		return nil
	case Unauthenticated:
		return shared.ErrUnauthenticated
	default:
		return shared.ErrForbidden
	}
}

// RequireLogin allows any authenticated principal.
func RequireLogin(p *Principal) Decision {
	if p == nil {
		return Unauthenticated
	}
	return Allowed
}

// RequireAdmin allows administrators only.
func RequireAdmin(p *Principal) Decision {
	if p == nil {
		return Unauthenticated
	}
	if !p.IsAdmin() {
		return Forbidden
	}
	return Allowed
}

// RequirePermission allows principals holding token, administrators included.
func RequirePermission(p *Principal, token string) Decision {
	if p == nil {
		return Unauthenticated
	}
	if !p.HasPermission(token) {
		return Forbidden
	}
	return Allowed
}
