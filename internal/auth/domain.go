package auth

import (
	"slices"
	"strings"
	"time"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Principal is the authenticated actor materialized at login and carried in
// the session for the rest of its lifetime.
type Principal struct {
	UserID         int64      `json:"user_id"`
	Username       string     `json:"username"`
	CollaboratorID int64      `json:"collaborator_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Position       string     `json:"position"`
	Email          string     `json:"email,omitempty"`
	Roles          []string   `json:"roles"`
	Permissions    []string   `json:"permissions"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// FullName joins first and last name.
func (p *Principal) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// IsAdmin reports whether the role set contains the administrator role name.
func (p *Principal) IsAdmin() bool {
	return p != nil && slices.Contains(p.Roles, shared.AdminRoleName)
}

// HasPermission reports whether the principal is an administrator or holds
// token in its permission union. Tokens match exactly.
func (p *Principal) HasPermission(token string) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	token = strings.TrimSpace(token)
	return token != "" && slices.Contains(p.Permissions, token)
}

// Credential is the row loaded to verify a login attempt.
type Credential struct {
	UserID         int64      `db:"id"`
	Username       string     `db:"username"`
	PasswordHash   string     `db:"password_hash"`
	IsActive       bool       `db:"is_active"`
	LastLogin      *time.Time `db:"last_login"`
	CollaboratorID int64      `db:"collaborator_id"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	Position       string     `db:"position"`
	Email          *string    `db:"email"`
	Roles          []string   `db:"roles"`
	Permissions    []string   `db:"permissions"`
}

// Principal builds the session principal. Permissions holds the union of
// every role's comma-joined token list.
func (c Credential) Principal() *Principal {
	var perms []string
	for _, raw := range c.Permissions {
		perms = append(perms, shared.ParsePermissions(raw)...)
	}
	p := &Principal{
		UserID:         c.UserID,
		Username:       c.Username,
		CollaboratorID: c.CollaboratorID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Position:       c.Position,
		Roles:          shared.NormalizePermissions(c.Roles),
		Permissions:    shared.NormalizePermissions(perms),
		LastLogin:      c.LastLogin,
	}
	if c.Email != nil {
		p.Email = *c.Email
	}
	return p
}
