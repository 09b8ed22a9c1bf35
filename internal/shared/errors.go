package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates user input failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration indicates missing or malformed startup configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrDatabaseUnavailable indicates the database could not be reached.
	ErrDatabaseUnavailable = errors.New("database unavailable")

	// ErrConstraintViolation indicates a unique or foreign-key conflict.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrDuplicateDocument occurs when a collaborator document number is taken.
	ErrDuplicateDocument = errors.New("document number already registered")
	// ErrDuplicateUsername occurs when a username is taken.
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrDuplicateRoleName occurs when a role name is taken.
	ErrDuplicateRoleName = errors.New("role name already registered")
	// ErrCollaboratorTaken occurs when a collaborator already owns a user account.
	ErrCollaboratorTaken = errors.New("collaborator already has a user")

	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no authenticated principal.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden indicates the principal lacks the required role or permission.
	ErrForbidden = errors.New("forbidden")

	// ErrRoleInUse occurs when deleting a role that is still assigned.
	ErrRoleInUse = errors.New("role is assigned to users")
	// ErrProtectedRole occurs when editing or deleting the administrator role.
	ErrProtectedRole = errors.New("role is protected")
	// ErrSelfDeletion occurs when a user tries to delete their own account.
	ErrSelfDeletion = errors.New("cannot delete own account")
	// ErrPasswordMismatch occurs when password confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage converts an error into a message suitable for flash banners.
// Internal errors collapse into a generic message so driver details never
// reach the browser.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Usuario o contraseña incorrectos"
	case errors.Is(err, ErrUnauthenticated):
		return "Debes iniciar sesión para acceder a esta página"
	case errors.Is(err, ErrForbidden):
		return "No tienes permisos para acceder a esta función"
	case errors.Is(err, ErrDuplicateDocument):
		return "Ya existe un colaborador con ese número de documento"
	case errors.Is(err, ErrDuplicateUsername):
		return "El nombre de usuario ya existe"
	case errors.Is(err, ErrDuplicateRoleName):
		return "Ya existe un rol con ese nombre"
	case errors.Is(err, ErrCollaboratorTaken):
		return "El colaborador ya tiene un usuario asignado"
	case errors.Is(err, ErrConstraintViolation):
		return "La operación entra en conflicto con datos existentes"
	case errors.Is(err, ErrRoleInUse):
		return "No se puede eliminar. El rol tiene usuarios asignados"
	case errors.Is(err, ErrProtectedRole):
		return "El rol Administrador no puede modificarse ni eliminarse"
	case errors.Is(err, ErrSelfDeletion):
		return "No puedes eliminar tu propio usuario"
	case errors.Is(err, ErrPasswordMismatch):
		return "Las contraseñas no coinciden"
	case errors.Is(err, ErrNotFound):
		return "El registro solicitado no existe"
	case errors.Is(err, ErrValidation):
		return "Complete todos los campos obligatorios"
	case errors.Is(err, ErrDatabaseUnavailable):
		return "La base de datos no está disponible, intente nuevamente"
	default:
		return "Ocurrió un error inesperado"
	}
}
