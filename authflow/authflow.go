// Package authflow is the decision core of the login flow. Given validated
// identity claims and the directory's eligibility answer, it resolves which
// session variant to issue and executes the onboarding and role-selection
// transitions. It never performs redirects itself; it emits the destination
// for the caller to apply.
package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/session"
)

// Destinations for the temporary states. Complete sessions use the role's
// dashboard route instead.
const (
	OnboardingRoute    = "/onboarding"
	RoleSelectionRoute = "/select-role"
)

var (
	// ErrInvalidSessionState rejects a transition submitted against a session
	// that is not in the required state, for example selecting a role on a
	// session that never needed one.
	ErrInvalidSessionState = errors.New("authflow: session is not in the required state")
	// ErrRoleNotAvailable rejects a role selection outside availableRoles.
	ErrRoleNotAvailable = errors.New("authflow: role is not available for this identity")
	// ErrNoEligibleRoles rejects an identity the directory maps to no role at
	// all. Such an identity can never hold a session.
	ErrNoEligibleRoles = errors.New("authflow: identity has no eligible roles")
)

// Result is the outcome of a successful resolution or transition: the session
// to issue and the destination the caller should send the user to.
type Result struct {
	Session  session.Session
	Redirect string
}

// Service drives the session state machine. Role eligibility is an external
// policy owned by the directory; the service only interprets its answers.
type Service struct {
	dir directory.Directory
	log zerolog.Logger
}

func New(dir directory.Directory, log zerolog.Logger) *Service {
	return &Service{dir: dir, log: log}
}

// Resolve maps freshly validated identity claims onto a session. The
// directory's profile decides the variant:
//
//	no eligible roles            -> ErrNoEligibleRoles
//	incomplete profile           -> temporary, needs onboarding
//	more than one eligible role  -> temporary, needs role selection
//	one role, complete profile   -> complete, no intermediate step
func (s *Service) Resolve(ctx context.Context, claims identity.Claims) (Result, error) {
	profile, err := s.dir.Lookup(ctx, claims.Provider, claims.Subject, claims.Email)
	if err != nil {
		return Result{}, fmt.Errorf("resolve identity %q: %w", claims.Subject, err)
	}
	return s.fromProfile(ctx, claims, profile)
}

func (s *Service) fromProfile(ctx context.Context, claims identity.Claims, profile directory.Profile) (Result, error) {
	if len(profile.EligibleRoles) == 0 {
		return Result{}, ErrNoEligibleRoles
	}

	if !profile.ProfileComplete {
		return Result{
			Session:  session.NewTemporary(claims, true, false, nil),
			Redirect: OnboardingRoute,
		}, nil
	}

	if len(profile.EligibleRoles) > 1 {
		return Result{
			Session:  session.NewTemporary(claims, false, true, profile.EligibleRoles),
			Redirect: RoleSelectionRoute,
		}, nil
	}

	return s.complete(ctx, claims, profile.EligibleRoles[0])
}

// complete assigns the role in the directory and builds the terminal session.
func (s *Service) complete(ctx context.Context, claims identity.Claims, role roles.Role) (Result, error) {
	userID, err := s.dir.AssignRole(ctx, claims.Provider, claims.Subject, claims.Email, role)
	if err != nil {
		return Result{}, fmt.Errorf("assign role %q to %q: %w", role, claims.Subject, err)
	}

	s.log.Info().
		Str("subject", claims.Subject).
		Str("provider", string(claims.Provider)).
		Str("role", string(role)).
		Msg("session completed")

	return Result{
		Session:  session.NewComplete(claims, role, userID),
		Redirect: role.DefaultRoute(),
	}, nil
}

// SelectRole executes the role-selection transition. Rejections leave the
// submitted session untouched; the caller keeps the existing cookie.
func (s *Service) SelectRole(ctx context.Context, sess session.Session, role roles.Role) (Result, error) {
	if !sess.Temporary() || !sess.NeedsRoleSelection {
		return Result{}, ErrInvalidSessionState
	}
	if !roles.Contains(sess.AvailableRoles, role) {
		return Result{}, ErrRoleNotAvailable
	}
	if !role.Valid() {
		return Result{}, roles.ErrUnknownRole
	}
	return s.complete(ctx, claimsFrom(sess), role)
}

// CompleteOnboarding executes the onboarding-submission transition. The
// directory records the profile data; the refreshed profile then resolves the
// next state, which is normally Complete but falls back to role selection if
// the identity gained extra eligible roles during onboarding.
func (s *Service) CompleteOnboarding(ctx context.Context, sess session.Session, input directory.OnboardingInput) (Result, error) {
	if !sess.Temporary() || !sess.NeedsOnboarding {
		return Result{}, ErrInvalidSessionState
	}

	claims := claimsFrom(sess)
	profile, err := s.dir.CompleteOnboarding(ctx, claims.Provider, claims.Subject, claims.Email, input)
	if err != nil {
		return Result{}, fmt.Errorf("complete onboarding for %q: %w", claims.Subject, err)
	}
	if !profile.ProfileComplete {
		return Result{}, fmt.Errorf("complete onboarding for %q: %w", claims.Subject, directory.ErrRejected)
	}
	return s.fromProfile(ctx, claims, profile)
}

// claimsFrom rebuilds identity claims from a session that was itself issued
// from validated claims. No re-validation happens here; the cookie signature
// already vouches for these fields.
func claimsFrom(sess session.Session) identity.Claims {
	return identity.Claims{
		Subject:  sess.Subject,
		Email:    sess.Email,
		Name:     sess.Name,
		Picture:  sess.Picture,
		Provider: sess.Provider,
	}
}
