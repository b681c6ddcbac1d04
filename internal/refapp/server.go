// Package refapp is a server-rendered copy of the application pagecheck
// observes: a login form, cookie sessions, the protected distance-to-sun
// and nearest-sea pages, and logout.
//
// It renders either the React variant (inline role=alert banners, native
// alert plus redirect for protected routes) or the static variant (every
// message a native alert, success.html landing page). Faults switch off
// individual behaviours so tests can prove the checker notices.
package refapp

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Variant selects which flavour of the application is served.
type Variant string

const (
	VariantReact  Variant = "react"
	VariantStatic Variant = "static"
)

// Route paths.
const (
	PathLogin    = "/"
	PathDistance = "/distance-to-sun"
	PathSea      = "/nearest-sea"
	PathSuccess  = "/success.html"
	PathLogout   = "/logout"
	PathSeaAPI   = "/api/nearest-sea"
)

// GeolocationHeader carries "lat,lng[,accuracy]" for clients that cannot
// run the page's geolocation script.
const GeolocationHeader = "X-Geolocation"

// Faults break specific behaviours of the application.
type Faults struct {
	// SkipRangeCheck accepts out-of-range coordinates.
	SkipRangeCheck bool
	// KeepSessionOnLogout leaves the session valid after logout.
	KeepSessionOnLogout bool
	// AllowAnonymous serves protected pages without a session.
	AllowAnonymous bool
}

// Account is a login the application accepts.
type Account struct {
	Email    string
	Password string
}

// DefaultAccount is the single login of the observed application.
var DefaultAccount = Account{Email: "name@mail.com", Password: "password"}

// Server serves the application.
type Server struct {
	variant  Variant
	faults   Faults
	accounts []Account
	logger   *slog.Logger
	sessions *sessions
	pages    *pages
	router   *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

func WithVariant(v Variant) Option {
	return func(s *Server) { s.variant = v }
}

func WithFaults(f Faults) Option {
	return func(s *Server) { s.faults = f }
}

func WithAccounts(accounts ...Account) Option {
	return func(s *Server) { s.accounts = accounts }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a server. It fails on an unknown variant.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		variant:  VariantReact,
		accounts: []Account{DefaultAccount},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		sessions: newSessions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.variant != VariantReact && s.variant != VariantStatic {
		return nil, fmt.Errorf("unknown variant %q: must be react or static", s.variant)
	}

	p, err := compilePages()
	if err != nil {
		return nil, err
	}
	s.pages = p
	s.router = s.buildRouter()
	return s, nil
}

// Variant returns the flavour being served.
func (s *Server) Variant() Variant {
	return s.variant
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get(PathLogin, s.handleLoginPage)
	r.Post(PathLogin, s.handleLogin)
	r.Get(PathLogout, s.handleLogout)

	switch s.variant {
	case VariantStatic:
		r.Get(PathSuccess, s.handleSuccess)
	default:
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get(PathDistance, s.handleDistancePage)
			r.Post(PathDistance, s.handleDistance)
			r.Get(PathSea, s.handleSea)
			r.Get(PathSeaAPI, s.handleSeaAPI)
		})
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
		)
	})
}
