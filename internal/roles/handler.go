package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/users"
	"github.com/pecsa/pecsa-admin/internal/view"
)

// UserDirectory lists the accounts roles can be assigned to.
type UserDirectory interface {
	List(ctx context.Context) ([]users.User, error)
	Get(ctx context.Context, id int64) (users.User, error)
}

// Assigner reads and replaces the role set of a user.
type Assigner interface {
	GetUserRoles(ctx context.Context, userID int64) ([]rbac.AssignedRole, error)
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	users     UserDirectory
	assigner  Assigner
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, users UserDirectory, assigner Assigner, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, users: users, assigner: assigner, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/", h.listRoles)
		r.Get("/new", h.showCreateRoleForm)
		r.Post("/", h.createRole)
		r.Get("/assignments", h.showAssignments)
		r.Post("/assignments", h.saveAssignments)
		r.Get("/{id}/edit", h.showEditRoleForm)
		r.Post("/{id}", h.updateRole)
		r.Post("/{id}/delete", h.deleteRole)
	})
}

type formErrors map[string]string

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		h.render(w, r, "pages/roles/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles/list.html", map[string]any{"Roles": roles}, http.StatusOK)
}

func (h *Handler) showCreateRoleForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "pages/roles/new.html", Role{}, Input{}, formErrors{}, http.StatusOK)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	form, ok := parseRoleForm(w, r)
	if !ok {
		return
	}
	id, err := h.service.Create(r.Context(), form)
	if err != nil {
		errs, status := h.formFailure("create role", err)
		h.renderForm(w, r, "pages/roles/new.html", Role{}, form, errs, status)
		return
	}
	h.logger.Info("role created", slog.Int64("role_id", id), slog.String("name", form.Name), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, "/roles", "success", "Rol creado exitosamente")
}

func (h *Handler) showEditRoleForm(w http.ResponseWriter, r *http.Request) {
	role, ok := h.loadRole(w, r)
	if !ok {
		return
	}
	if role.IsProtected() {
		h.redirectWithFlash(w, r, "/roles", "warning", shared.UserSafeMessage(shared.ErrProtectedRole))
		return
	}
	known, extra := splitCatalog(role.PermissionList())
	form := Input{Name: role.Name, Permissions: known, Extra: strings.Join(extra, ", ")}
	if role.Description != nil {
		form.Description = *role.Description
	}
	h.renderForm(w, r, "pages/roles/edit.html", role, form, formErrors{}, http.StatusOK)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.loadRole(w, r)
	if !ok {
		return
	}
	form, ok := parseRoleForm(w, r)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), role.ID, form); err != nil {
		if errors.Is(err, shared.ErrProtectedRole) && role.IsProtected() {
			h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
			return
		}
		errs, status := h.formFailure("update role", err)
		h.renderForm(w, r, "pages/roles/edit.html", role, form, errs, status)
		return
	}
	h.redirectWithFlash(w, r, "/roles", "success", "Rol actualizado exitosamente")
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		var inUse *InUseError
		switch {
		case errors.As(err, &inUse):
			h.redirectWithFlash(w, r, "/roles", "error", inUse.Message())
		case errors.Is(err, shared.ErrProtectedRole), errors.Is(err, shared.ErrNotFound):
			h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
		default:
			h.logger.Error("delete role", slog.Int64("role_id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
		}
		return
	}
	h.logger.Info("role deleted", slog.Int64("role_id", id), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, "/roles", "success", "Rol eliminado exitosamente")
}

type assignmentsPage struct {
	Users    []users.User
	Selected *users.User
	Roles    []Role
	Assigned []int64
	Errors   formErrors
}

func (h *Handler) showAssignments(w http.ResponseWriter, r *http.Request) {
	var selectedID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.redirectWithFlash(w, r, "/roles/assignments", "error", shared.UserSafeMessage(shared.ErrNotFound))
			return
		}
		selectedID = id
	}
	page, err := h.assignmentsData(r.Context(), selectedID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/roles/assignments", "error", shared.UserSafeMessage(err))
			return
		}
		h.logger.Error("load assignments", slog.Int64("user_id", selectedID), slog.Any("error", err))
		h.render(w, r, "pages/roles/assignments.html", map[string]any{"Page": assignmentsPage{Errors: formErrors{"general": shared.UserSafeMessage(err)}}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/roles/assignments.html", map[string]any{"Page": page}, http.StatusOK)
}

func (h *Handler) saveAssignments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.PostFormValue("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		h.redirectWithFlash(w, r, "/roles/assignments", "error", "Seleccione un usuario")
		return
	}
	target, err := h.users.Get(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("load user for assignment", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, "/roles/assignments", "error", shared.UserSafeMessage(err))
		return
	}
	roleIDs := make([]int64, 0, len(r.PostForm["role_id"]))
	for _, raw := range r.PostForm["role_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		roleIDs = append(roleIDs, id)
	}
	location := fmt.Sprintf("/roles/assignments?user_id=%d", userID)
	if err := h.assigner.ReplaceUserRoles(r.Context(), userID, roleIDs); err != nil {
		h.logger.Error("replace user roles", slog.Int64("user_id", userID), slog.Any("error", err))
		h.redirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
		return
	}
	h.logger.Info("user roles replaced", slog.Int64("user_id", userID), slog.Int("roles", len(roleIDs)), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, location, "success", "Roles actualizados para "+target.Username)
}

func (h *Handler) assignmentsData(ctx context.Context, userID int64) (assignmentsPage, error) {
	page := assignmentsPage{Errors: formErrors{}}
	list, err := h.users.List(ctx)
	if err != nil {
		return page, err
	}
	page.Users = list
	if userID == 0 {
		return page, nil
	}
	selected, err := h.users.Get(ctx, userID)
	if err != nil {
		return page, err
	}
	page.Selected = &selected
	if page.Roles, err = h.service.List(ctx); err != nil {
		return page, err
	}
	held, err := h.assigner.GetUserRoles(ctx, userID)
	if err != nil {
		return page, err
	}
	page.Assigned = rbac.RoleIDs(held)
	return page, nil
}

func (h *Handler) loadRole(w http.ResponseWriter, r *http.Request) (Role, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return Role{}, false
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/roles", "error", shared.UserSafeMessage(err))
			return Role{}, false
		}
		h.logger.Error("load role", slog.Int64("role_id", id), slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return Role{}, false
	}
	return role, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, template string, role Role, form Input, errs formErrors, status int) {
	h.render(w, r, template, map[string]any{
		"Role":    role,
		"Form":    form,
		"Catalog": shared.PermissionCatalog(),
		"Errors":  errs,
	}, status)
}

func (h *Handler) formFailure(op string, err error) (formErrors, int) {
	if fields := shared.FieldErrors(err); fields != nil {
		errs := formErrors(fields)
		errs["general"] = shared.UserSafeMessage(err)
		return errs, http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, shared.ErrDuplicateRoleName), errors.Is(err, shared.ErrProtectedRole):
		return formErrors{"Name": shared.UserSafeMessage(err), "general": shared.UserSafeMessage(err)}, http.StatusConflict
	case errors.Is(err, shared.ErrConstraintViolation), errors.Is(err, shared.ErrNotFound):
		return formErrors{"general": shared.UserSafeMessage(err)}, http.StatusConflict
	}
	h.logger.Error(op, slog.Any("error", err))
	return formErrors{"general": shared.UserSafeMessage(err)}, http.StatusInternalServerError
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Roles", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		viewData.Viewer = p
	}
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func parseRoleForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		Permissions: r.PostForm["permissions"],
		Extra:       r.PostFormValue("extra_permissions"),
	}, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func actorName(r *http.Request) string {
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		return p.Username
	}
	return ""
}

// splitCatalog separates tokens offered as checkboxes from free-form ones.
func splitCatalog(tokens []string) (known, extra []string) {
	var catalog []string
	for _, g := range shared.PermissionCatalog() {
		for _, o := range g.Options {
			catalog = append(catalog, o.Token)
		}
	}
	for _, t := range tokens {
		if slices.Contains(catalog, t) {
			known = append(known, t)
		} else {
			extra = append(extra, t)
		}
	}
	return known, extra
}
