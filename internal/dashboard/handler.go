package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pecsa/pecsa-admin/internal/auth"
	"github.com/pecsa/pecsa-admin/internal/rbac"
	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/view"
)

// Handler renders the landing page.
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

// MountRoutes registers the dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireLogin()).Get("/", h.show)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	page, err := h.service.Build(r.Context(), p)
	status := http.StatusOK
	data := map[string]any{"Page": page}
	if err != nil {
		h.logger.Error("build dashboard", slog.String("username", p.Username), slog.Any("error", err))
		data["Errors"] = map[string]string{"general": shared.UserSafeMessage(err)}
		status = http.StatusInternalServerError
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Inicio", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if p != nil {
		viewData.Viewer = p
	}
	if err := h.templates.RenderStatus(w, status, "pages/dashboard.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}
