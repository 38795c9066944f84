package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planfest/planfest-auth/roles"
)

const (
	RouteLogin      = "/login"
	RouteOnboarding = "/onboarding"
	RouteSelectRole = "/select-role"

	RouteAuthLogin    = "/auth/login/{provider}"
	RouteAuthCallback = "/auth/callback/{provider}"

	RouteAPISession    = "/api/auth/session"
	RouteAPIRole       = "/api/auth/role"
	RouteAPIOnboarding = "/api/auth/onboarding"
	RouteAPILogout     = "/api/auth/logout"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.gate)

		r.Get(RouteAuthLogin, s.handleLoginStart)
		r.Get(RouteAuthCallback, s.handleCallback)

		r.Post(RouteAPISession, s.handleIssueSession)
		r.Get(RouteAPISession, s.handleQuerySession)
		r.Post(RouteAPIRole, s.handleSelectRole)
		r.Post(RouteAPIOnboarding, s.handleOnboarding)
		r.Post(RouteAPILogout, s.handleLogout)

		r.Get(RouteLogin, s.handleLoginPage)
		r.Get(RouteOnboarding, s.handleStepPage("needs onboarding"))
		r.Get(RouteSelectRole, s.handleStepPage("needs role selection"))

		for _, role := range roles.All() {
			role := role
			r.HandleFunc(role.RoutePrefix()+"/*", func(w http.ResponseWriter, req *http.Request) {
				s.serveUpstream(w, req, role)
			})
			r.HandleFunc(role.RoutePrefix(), func(w http.ResponseWriter, req *http.Request) {
				s.serveUpstream(w, req, role)
			})
		}
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
