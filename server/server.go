// Package server wires the login flow, session gate, and role-area proxies
// into a single HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/planfest/planfest-auth/authflow"
	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/internal/secretbox"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/session"
)

// TokenValidator checks a raw ID token against a provider's keys and returns
// normalized claims. Satisfied by identity.Validator.
type TokenValidator interface {
	Validate(ctx context.Context, rawIDToken string, provider providers.Name) (identity.Claims, error)
}

type Server struct {
	log       zerolog.Logger
	registry  providers.Registry
	validator TokenValidator
	codec     *session.Codec
	flow      *authflow.Service
	dir       directory.Directory

	// txBox seals the login transaction cookie carrying the PKCE verifier
	// across the provider round-trip.
	txBox *secretbox.Box
	txTTL time.Duration

	upstreams map[roles.Role]http.Handler

	router chi.Router
	now    func() time.Time
}

type Option func(*Server)

// WithNow overrides the server clock.
func WithNow(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithUpstream mounts a handler behind the gate for a role's route prefix.
// Production wiring passes reverse proxies; tests pass plain handlers.
func WithUpstream(role roles.Role, h http.Handler) Option {
	return func(s *Server) { s.upstreams[role] = h }
}

func New(
	log zerolog.Logger,
	registry providers.Registry,
	validator TokenValidator,
	codec *session.Codec,
	dir directory.Directory,
	txBox *secretbox.Box,
	txTTL time.Duration,
	opts ...Option,
) *Server {
	s := &Server{
		log:       log,
		registry:  registry,
		validator: validator,
		codec:     codec,
		flow:      authflow.New(dir, log),
		dir:       dir,
		txBox:     txBox,
		txTTL:     txTTL,
		upstreams: map[roles.Role]http.Handler{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
