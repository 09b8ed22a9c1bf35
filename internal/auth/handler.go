package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/pecsa/pecsa-admin/internal/shared"
	"github.com/pecsa/pecsa-admin/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	loginPerMinute int
	observe        func(outcome string)
}

// NewHandler constructs a Handler instance. loginPerMinute caps POST /login
// per client IP; zero disables the cap.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, loginPerMinute int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		loginPerMinute: loginPerMinute,
	}
}

// ObserveLogins registers a callback receiving "success", "rejected" or
// "error" for every login attempt.
func (h *Handler) ObserveLogins(fn func(outcome string)) {
	h.observe = fn
}

func (h *Handler) observeLogin(outcome string) {
	if h.observe != nil {
		h.observe(outcome)
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	if h.loginPerMinute > 0 {
		r.With(httprate.LimitByIP(h.loginPerMinute, time.Minute)).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Username string `validate:"required,max=50"`
	Password string `validate:"required,max=72"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if PrincipalFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, loginPageData{Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	errs := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = "Campo obligatorio"
			}
		}
		errs["general"] = "Por favor complete todos los campos"
	}

	if len(errs) == 0 {
		principal, err := h.service.Login(r.Context(), sess, form.Username, form.Password)
		switch {
		case err == nil:
			h.observeLogin("success")
			h.logger.Info("login", slog.String("username", principal.Username), slog.Int64("user_id", principal.UserID))
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "¡Bienvenido, " + principal.FirstName + "!"})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.observeLogin("rejected")
			h.logger.Warn("login rejected", slog.String("username", form.Username))
			errs["general"] = shared.UserSafeMessage(err)
		default:
			h.observeLogin("error")
			h.logger.Error("login failed", slog.Any("error", err))
			form.Password = ""
			h.render(w, r, loginPageData{Form: form, Errors: map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
			return
		}
	}

	form.Password = ""
	h.render(w, r, loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if p := PrincipalFromContext(r.Context()); p != nil {
		h.logger.Info("logout", slog.String("username", p.Username))
	}
	h.service.Logout(h.sessionManager, sess)
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Iniciar sesión",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
