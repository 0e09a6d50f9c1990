// Package web is the portal's presentation layer: thin page handlers
// over the gateway client and the session manager, behind a route
// guard. Handlers parse a form, make one backend call, and render; all
// server-supplied text goes through html/template so it is escaped.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/communication-ltd/portal/internal/gateway"
	"github.com/communication-ltd/portal/internal/session"
	"github.com/communication-ltd/portal/pkg/logger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Config configures the web server.
type Config struct {
	Backend       *gateway.Client
	Sessions      *session.Manager
	Logger        *logger.Logger
	CookieName    string
	CookieSecret  []byte
	SecureCookies bool
	// LoginAttemptsPerMinute throttles POST /login per client IP.
	// Zero means the default of 10 with a burst of 5.
	LoginAttemptsPerMinute int
	// Registry receives the portal's metrics. Nil uses the default
	// prometheus registry.
	Registry *prometheus.Registry
}

// Server renders the portal pages.
type Server struct {
	router   *mux.Router
	backend  *gateway.Client
	sessions *session.Manager
	log      *logger.Logger
	tmpl     *template.Template
	cookies  *cookieCodec
	limiter  *loginLimiter
	metrics  *metrics
	metricsH http.Handler
}

// NewServer builds the portal server and its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("web: backend client is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("web: session manager is required")
	}
	if len(cfg.CookieSecret) == 0 {
		return nil, fmt.Errorf("web: cookie secret is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "portal_session"
	}
	perMinute := cfg.LoginAttemptsPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	tmpl, err := template.New("portal").Funcs(template.FuncMap{
		"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	var registry prometheus.Registerer = prometheus.DefaultRegisterer
	metricsH := promhttp.Handler()
	if cfg.Registry != nil {
		registry = cfg.Registry
		metricsH = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	}

	s := &Server{
		backend:  cfg.Backend,
		sessions: cfg.Sessions,
		log:      log.Component("web"),
		tmpl:     tmpl,
		cookies:  newCookieCodec(cookieName, cfg.CookieSecret, cfg.SecureCookies),
		limiter:  newLoginLimiter(perMinute, 5),
		metrics:  newMetrics(registry),
		metricsH: metricsH,
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logging, s.withMetrics)

	// Public routes.
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(staticFS))).Methods(http.MethodGet)
	r.Handle("/metrics", s.metricsH).Methods(http.MethodGet)
	r.HandleFunc("/login", s.showLogin).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", s.showRegister).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/forgot-password", s.showForgotPassword).Methods(http.MethodGet)
	r.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/reset-password", s.showResetPassword).Methods(http.MethodGet)
	r.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)

	// Protected routes.
	r.HandleFunc("/", s.requireSession(s.handleHome)).Methods(http.MethodGet)
	r.HandleFunc("/about", s.requireSession(s.handleAbout)).Methods(http.MethodGet)
	r.HandleFunc("/data-plans", s.requireSession(s.handleDataPlans)).Methods(http.MethodGet)
	r.HandleFunc("/contact", s.requireSession(s.showContact)).Methods(http.MethodGet)
	r.HandleFunc("/contact", s.requireSession(s.handleContact)).Methods(http.MethodPost)
	r.HandleFunc("/customers/new", s.requireSession(s.showAddCustomer)).Methods(http.MethodGet)
	r.HandleFunc("/customers/new", s.requireSession(s.handleAddCustomer)).Methods(http.MethodPost)
	r.HandleFunc("/customers/search", s.requireSession(s.showSearchCustomers)).Methods(http.MethodGet)
	r.HandleFunc("/customers/search", s.requireSession(s.handleSearchCustomers)).Methods(http.MethodPost)
	r.HandleFunc("/account/profile", s.requireSession(s.handleProfile)).Methods(http.MethodGet)
	r.HandleFunc("/account/password", s.requireSession(s.showChangePassword)).Methods(http.MethodGet)
	r.HandleFunc("/account/password", s.requireSession(s.handleChangePassword)).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.requireSession(s.handleLogout)).Methods(http.MethodPost)

	r.NotFoundHandler = s.logging(http.HandlerFunc(s.handleNotFound))
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","service":"portal"}`))
}

// page is the view model every template receives.
type page struct {
	Title string
	// User is nil on public pages and on protected pages whose
	// identity is still loading.
	User *session.Identity
	// Error and Notice are one-shot messages rendered by the layout.
	Error  string
	Notice string
	// Form echoes submitted values back into the form on errors.
	Form map[string]string
	// Data carries page-specific content (plans, customers, ...).
	Data interface{}
}

func (s *Server) newPage(r *http.Request, title string) page {
	p := page{Title: title, Form: map[string]string{}}
	if sess := currentSession(r.Context()); sess != nil {
		if id, ok := sess.Store.Current(); ok {
			p.User = &id
		}
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, p); err != nil {
		s.log.WithError(err).WithField("template", name).Error("render failed")
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.render(w, status, "error.tmpl", page{Title: "Error", Error: message})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "not_found.tmpl", page{Title: "Page not found"})
}

// failureMessage turns a gateway error into the text shown to the
// visitor. Backend-supplied messages pass through; transport details
// never do.
func failureMessage(err error) string {
	if ge, ok := gateway.AsError(err); ok {
		switch ge.Code {
		case gateway.CodeConnectivity:
			return "We could not reach the server. Please check your connection and try again."
		case gateway.CodeServer:
			return "The server ran into a problem. Please try again later."
		default:
			return ge.Message
		}
	}
	return "Something went wrong. Please try again."
}

// expireSession handles a 401/403 on an authenticated call: the token
// no longer stands, so the visitor is logged out and sent to login.
// It reports whether it redirected.
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request, err error) bool {
	if !gateway.IsSessionInvalid(err) {
		return false
	}
	if sess := currentSession(r.Context()); sess != nil {
		s.sessions.Invalidate(r.Context(), sess)
	}
	s.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}
