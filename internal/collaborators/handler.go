package collaborators

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/view"
)

// Handler serves the collaborator pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers collaborator routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}", h.update)
		r.Post("/{id}/deactivate", h.setStatus(StatusInactive))
		r.Post("/{id}/activate", h.setStatus(StatusActive))
	})
}

type formErrors map[string]string

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list collaborators", slog.Any("error", err))
		h.render(w, r, "pages/collaborators/list.html", map[string]any{"Filter": filter, "Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/collaborators/list.html", map[string]any{"Filter": filter, "Collaborators": items}, http.StatusOK)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("collaborator stats", slog.Any("error", err))
		h.render(w, r, "pages/collaborators/stats.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/collaborators/stats.html", map[string]any{"Stats": stats}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/collaborators/new.html", map[string]any{"Form": CreateInput{Status: StatusActive}, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := CreateInput{
		DocumentNumber: r.PostFormValue("document_number"),
		FirstName:      r.PostFormValue("first_name"),
		LastName:       r.PostFormValue("last_name"),
		Position:       r.PostFormValue("position"),
		Phone:          r.PostFormValue("phone"),
		Email:          r.PostFormValue("email"),
		Status:         Status(r.PostFormValue("status")),
	}
	id, err := h.service.Create(r.Context(), form)
	if err != nil {
		errs, status := h.formFailure("create collaborator", err)
		h.render(w, r, "pages/collaborators/new.html", map[string]any{"Form": form, "Errors": errs}, status)
		return
	}
	h.logger.Info("collaborator created", slog.Int64("collaborator_id", id), slog.String("document", form.DocumentNumber))
	h.redirectWithFlash(w, r, "/collaborators", "success", "Colaborador registrado exitosamente")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	form := UpdateInput{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Position:  c.Position,
		Phone:     deref(c.Phone),
		Email:     deref(c.Email),
		Status:    c.Status,
	}
	h.render(w, r, "pages/collaborators/edit.html", map[string]any{"Collaborator": c, "Form": form, "Errors": formErrors{}}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := UpdateInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Position:  r.PostFormValue("position"),
		Phone:     r.PostFormValue("phone"),
		Email:     r.PostFormValue("email"),
		Status:    Status(r.PostFormValue("status")),
	}
	if err := h.service.Update(r.Context(), c.ID, form); err != nil {
		errs, status := h.formFailure("update collaborator", err)
		h.render(w, r, "pages/collaborators/edit.html", map[string]any{"Collaborator": c, "Form": form, "Errors": errs}, status)
		return
	}
	h.redirectWithFlash(w, r, "/collaborators", "success", "Colaborador actualizado")
}

func (h *Handler) setStatus(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if status == StatusActive {
			err = h.service.Activate(r.Context(), id)
		} else {
			err = h.service.SoftDelete(r.Context(), id)
		}
		if err != nil {
			h.logger.Error("set collaborator status", slog.Int64("collaborator_id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/collaborators", "error", shared.UserSafeMessage(err))
			return
		}
		msg := "Colaborador desactivado"
		if status == StatusActive {
			msg = "Colaborador activado"
		}
		h.redirectWithFlash(w, r, "/collaborators", "success", msg)
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Collaborator, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return Collaborator{}, false
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.redirectWithFlash(w, r, "/collaborators", "error", shared.UserSafeMessage(err))
			return Collaborator{}, false
		}
		h.logger.Error("load collaborator", slog.Int64("collaborator_id", id), slog.Any("error", err))
		http.Error(w, shared.UserSafeMessage(err), http.StatusInternalServerError)
		return Collaborator{}, false
	}
	return c, true
}

func (h *Handler) formFailure(op string, err error) (formErrors, int) {
	if fields := shared.FieldErrors(err); fields != nil {
		errs := formErrors(fields)
		errs["general"] = shared.UserSafeMessage(err)
		return errs, http.StatusUnprocessableEntity
	}
	if errors.Is(err, shared.ErrConstraintViolation) || errors.Is(err, shared.ErrNotFound) {
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
	viewData := view.TemplateData{Title: "Colaboradores", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
