package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/collaborators"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/view"
)

// CollaboratorSource lists collaborators that can receive an account.
type CollaboratorSource interface {
	ListAvailable(ctx context.Context) ([]collaborators.Collaborator, error)
}

// Handler manages user management endpoints.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	collaborators CollaboratorSource
	templates     *view.Engine
	csrf          *shared.CSRFManager
	rbac          rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, collabs CollaboratorSource, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, collaborators: collabs, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/", h.listUsers)
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createUser)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.updateUser)
		r.Get("/{id}/password", h.showPasswordForm)
		r.Post("/{id}/password", h.changePassword)
		r.Post("/{id}/activate", h.setActive(true))
		r.Post("/{id}/deactivate", h.setActive(false))
		r.Post("/{id}/delete", h.deleteUser)
	})
}

type formErrors map[string]string

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		h.render(w, r, "pages/users/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/users/list.html", map[string]any{"Users": users}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderCreateForm(w, r, CreateInput{IsActive: true}, formErrors{}, http.StatusOK)
}

func (h *Handler) renderCreateForm(w http.ResponseWriter, r *http.Request, form CreateInput, errs formErrors, status int) {
	available, err := h.collaborators.ListAvailable(r.Context())
	if err != nil {
		h.logger.Error("list available collaborators", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
		status = http.StatusInternalServerError
	}
	form.Password, form.ConfirmPassword = "", ""
	h.render(w, r, "pages/users/new.html", map[string]any{"Form": form, "Collaborators": available, "Errors": errs}, status)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	collabID, _ := strconv.ParseInt(r.PostFormValue("collaborator_id"), 10, 64)
	form := CreateInput{
		CollaboratorID:  collabID,
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("password_confirm"),
		IsActive:        r.PostFormValue("is_active") != "",
	}
	if _, err := h.service.Create(r.Context(), form); err != nil {
		errs, status := h.formFailure("create user", err)
		h.renderCreateForm(w, r, form, errs, status)
		return
	}
	h.logger.Info("user created", slog.String("username", form.Username), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, "/users", "success", "Usuario creado exitosamente")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	form := UpdateInput{Username: user.Username, IsActive: user.IsActive}
	h.render(w, r, "pages/users/edit.html", map[string]any{"User": user, "Form": form, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := UpdateInput{
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("password_confirm"),
		IsActive:        r.PostFormValue("is_active") != "",
	}
	if err := h.service.Update(r.Context(), user.ID, form); err != nil {
		errs, status := h.formFailure("update user", err)
		form.Password, form.ConfirmPassword = "", ""
		h.render(w, r, "pages/users/edit.html", map[string]any{"User": user, "Form": form, "Errors": errs}, status)
		return
	}
	h.redirectWithFlash(w, r, "/users", "success", "Usuario actualizado")
}

func (h *Handler) showPasswordForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/users/password.html", map[string]any{"User": user, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := PasswordInput{Password: r.PostFormValue("password"), ConfirmPassword: r.PostFormValue("password_confirm")}
	if err := h.service.ChangePassword(r.Context(), user.ID, in); err != nil {
		errs, status := h.formFailure("change password", err)
		h.render(w, r, "pages/users/password.html", map[string]any{"User": user, "Errors": errs}, status)
		return
	}
	h.logger.Info("password changed", slog.Int64("user_id", user.ID), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, "/users", "success", "Contraseña actualizada")
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			h.logger.Error("set user active", slog.Int64("user_id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
			return
		}
		msg := "Usuario desactivado"
		if active {
			msg = "Usuario activado"
		}
		h.redirectWithFlash(w, r, "/users", "success", msg)
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var actorID int64
	if p := auth.PrincipalFromContext(r.Context()); p != nil {
		actorID = p.UserID
	}
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		if !errors.Is(err, shared.ErrSelfDeletion) {
			h.logger.Error("delete user", slog.Int64("user_id", id), slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
		return
	}
	h.logger.Info("user deleted", slog.Int64("user_id", id), slog.String("actor", actorName(r)))
	h.redirectWithFlash(w, r, "/users", "success", "Usuario eliminado")
}

func (h *Handler) loadUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return User{}, false
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/users", "error", shared.UserSafeMessage(err))
			return User{}, false
		}
		h.logger.Error("load user", slog.Int64("user_id", id), slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return User{}, false
	}
	return user, true
}

func (h *Handler) formFailure(op string, err error) (formErrors, int) {
	if fields := shared.FieldErrors(err); fields != nil {
		errs := formErrors(fields)
		errs["general"] = shared.UserSafeMessage(err)
		return errs, http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, shared.ErrPasswordMismatch):
		return formErrors{"general": shared.UserSafeMessage(err), "ConfirmPassword": shared.UserSafeMessage(err)}, http.StatusUnprocessableEntity
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
	viewData := view.TemplateData{Title: "Usuarios", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
