package roles

import (
	"fmt"
	"strings"
	"time"

	"github.com/pecsa/pecsa-admin/internal/shared"
)

// Role is a named bundle of permission tokens.
type Role struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Permissions *string   `db:"permissions"`
	UserCount   int64     `db:"user_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PermissionList splits the stored permission string into tokens.
func (r Role) PermissionList() []string {
	if r.Permissions == nil {
		return nil
	}
	return shared.ParsePermissions(*r.Permissions)
}

// IsProtected reports whether the role is the administrator role.
func (r Role) IsProtected() bool {
	return isAdminName(r.Name)
}

// Input carries the role form. Permissions holds the checked catalog tokens,
// Extra any free-form tokens separated by commas.
type Input struct {
	Name        string   `validate:"required,max=50"`
	Description string   `validate:"max=500"`
	Permissions []string `validate:"dive,max=50"`
	Extra       string
}

// Tokens merges checked and free-form permissions into one ordered set.
func (in Input) Tokens() []string {
	all := append(append([]string{}, in.Permissions...), shared.ParsePermissions(in.Extra)...)
	return shared.NormalizePermissions(all)
}

// InUseError reports a delete refused because users still hold the role.
type InUseError struct {
	Role  string
	Users int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("roles: %s is assigned to %d users", e.Role, e.Users)
}

// Unwrap lets errors.Is match shared.ErrRoleInUse.
func (e *InUseError) Unwrap() error {
	return shared.ErrRoleInUse
}

// Message is the banner text shown to the operator.
func (e *InUseError) Message() string {
	return fmt.Sprintf("No se puede eliminar. El rol tiene %d usuarios asignados", e.Users)
}

func isAdminName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), shared.AdminRoleName)
}
