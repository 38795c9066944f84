// Package directory is the boundary to the backend data service that owns
// user profiles and role eligibility. Which roles an identity may hold is an
// external policy decided behind this interface; the auth core never guesses
// business rules.
package directory

import (
	"context"
	"errors"

	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

var (
	// ErrUnavailable wraps transport or server failures reaching the backend.
	ErrUnavailable = errors.New("directory: backend unavailable")

	// ErrRejected wraps a backend refusal of an onboarding or role-assignment
	// request (validation failure, identity conflict).
	ErrRejected = errors.New("directory: request rejected")
)

// Profile is what the backend knows about a verified identity. UserID is
// empty until the backend has materialized an application user record.
type Profile struct {
	UserID          string       `json:"userId"`
	EligibleRoles   []roles.Role `json:"eligibleRoles"`
	ProfileComplete bool         `json:"profileComplete"`
}

// OnboardingInput carries the profile fields a new user submits to finish
// setup.
type OnboardingInput struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
}

// Directory resolves identities to role eligibility and executes the profile
// transitions the session state machine requests.
type Directory interface {
	// Lookup returns the profile for an identity. New identities still get a
	// deterministic eligibility answer; the roles come back in a stable order.
	Lookup(ctx context.Context, provider providers.Name, subject, email string) (Profile, error)

	// CompleteOnboarding records the submitted profile fields, materializes
	// the user, and returns the finalized profile (single role, complete).
	CompleteOnboarding(ctx context.Context, provider providers.Name, subject, email string, input OnboardingInput) (Profile, error)

	// AssignRole finalizes a role choice for an identity and returns the
	// internal user id.
	AssignRole(ctx context.Context, provider providers.Name, subject, email string, role roles.Role) (string, error)
}
