package console

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/appetiteclub/posconsole/internal/backend"
	"github.com/appetiteclub/posconsole/internal/journal"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
)

const layoutTemplate = "base.html"

// TemplateSource resolves page and fragment templates by file name.
type TemplateSource interface {
	Get(name string) (*template.Template, error)
}

// HandlerDeps groups the collaborators of the console handler.
type HandlerDeps struct {
	Templates TemplateSource
	Backend   *backend.Client
	Sessions  SessionStore
	Journal   journal.Journal
	Publisher events.Publisher
	Uploads   *UploadTracker
}

type Handler struct {
	tmpl      TemplateSource
	client    *backend.Client
	sessions  SessionStore
	journal   journal.Journal
	publisher events.Publisher
	uploads   *UploadTracker
	audit     *AuditLogger
	settings  Settings
	logger    aqm.Logger
	http      *telemetry.HTTP
	now       func() time.Time

	// resumed holds the ids of sessions verified by this process.
	resumed sync.Map
}

func NewHandler(deps HandlerDeps, settings Settings, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	settings = settings.withDefaults()

	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}

	j := deps.Journal
	if j == nil {
		j = journal.NewMemoryJournal()
	}

	uploads := deps.Uploads
	if uploads == nil {
		uploads = NewUploadTracker(settings.UploadTimeout, logger)
	}

	return &Handler{
		tmpl:      deps.Templates,
		client:    deps.Backend,
		sessions:  sessions,
		journal:   j,
		publisher: deps.Publisher,
		uploads:   uploads,
		audit:     NewAuditLogger(logger),
		settings:  settings,
		logger:    logger,
		http:      telemetry.NewHTTP(),
		now:       time.Now,
	}
}

// RegisterRoutes registers the console pages.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/signin", h.ShowSignIn)
	r.Post("/signin", h.HandleSignIn)
	r.Get("/signup", h.ShowSignUp)
	r.Post("/signup", h.HandleSignUp)
	r.Post("/signout", h.HandleSignOut)

	r.Group(func(r chi.Router) {
		r.Use(h.SessionMiddleware)

		r.Get("/", h.Orders)
		r.Route("/orders/tables/{tableID}", func(r chi.Router) {
			r.Get("/", h.TableOrders)
			r.Get("/payment", h.ShowPayment)
			r.Post("/payment", h.SubmitPayment)
			r.Post("/payment/key", h.PaymentKey)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/", h.Menu)
			r.Get("/new", h.NewMenuItemForm)
			r.Post("/", h.CreateMenuItem)
			r.Get("/uploads/{taskID}", h.UploadStatus)
			r.Get("/{id}/edit", h.EditMenuItemForm)
			r.Post("/{id}", h.UpdateMenuItem)
			r.Post("/{id}/delete", h.DeleteMenuItem)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories)
			r.Post("/", h.CreateCategory)
			r.Post("/{id}", h.UpdateCategory)
			r.Post("/{id}/delete", h.DeleteCategory)
		})

		r.Get("/reports", h.Reports)
	})
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

// renderTemplate executes layout from the template set of templateName.
// Output is buffered so a failing template never leaves a half-written page.
func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, status int, templateName, layout string, data map[string]interface{}) {
	if h.tmpl == nil {
		h.log(r).Error("template source not configured", "template", templateName)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tmpl, err := h.tmpl.Get(templateName)
	if err != nil {
		h.log(r).Error("error loading template", "error", err, "template", templateName)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layout, data); err != nil {
		h.log(r).Error("error rendering template", "error", err, "template", templateName, "layout", layout)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderPage renders a full page, or only its content block for HTMX requests.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, templateName string, data map[string]interface{}) {
	if session := sessionFromContext(r.Context()); session != nil {
		data["Admin"] = session.Admin
	}

	layout := layoutTemplate
	if aqm.IsHTMX(r) && r.Header.Get("HX-Target") == "content" {
		layout = "content"
	}
	h.renderTemplate(w, r, status, templateName, layout, data)
}

// renderFragment renders a named fragment of templateName.
func (h *Handler) renderFragment(w http.ResponseWriter, r *http.Request, status int, templateName, fragment string, data interface{}) {
	if h.tmpl == nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tmpl, err := h.tmpl.Get(templateName)
	if err != nil {
		h.log(r).Error("error loading template", "error", err, "template", templateName)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, fragment, data); err != nil {
		h.log(r).Error("error rendering fragment", "error", err, "template", templateName, "fragment", fragment)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// handleBackendError signs the admin out when the backend rejected the
// session token. It reports whether the response was written.
func (h *Handler) handleBackendError(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, backend.ErrUnauthorized) {
		return false
	}

	session := sessionFromContext(r.Context())
	if session != nil {
		h.revoke(r, session, err)
	}
	h.clearCookie(w)
	aqm.RedirectOrHeader(w, r, "/signin?expired=1")
	return true
}

// userMessage maps backend failures to the text shown to the admin.
func userMessage(err error, fallback string) string {
	if errors.Is(err, backend.ErrTransport) {
		return "Could not reach the server. Please try again."
	}
	return backend.MessageOf(err, fallback)
}

func (h *Handler) adminName(r *http.Request) string {
	if session := sessionFromContext(r.Context()); session != nil {
		return session.Admin.Username
	}
	return ""
}
