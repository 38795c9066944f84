// Package dirfake provides an in-memory Directory for tests and local runs.
package dirfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

type identity struct {
	profile    directory.Profile
	onboarding directory.OnboardingInput
}

// FakeDirectory keeps identity records in memory. Unknown identities resolve
// to a fresh buyer profile that still needs onboarding, which matches how the
// backend treats first-time sign-ins.
type FakeDirectory struct {
	mu         sync.Mutex
	identities map[string]*identity

	// Fail, when set, is returned by every call. Lets tests exercise the
	// unavailable path without a second fake.
	Fail error
}

func New() *FakeDirectory {
	return &FakeDirectory{identities: map[string]*identity{}}
}

func key(provider providers.Name, subject string) string {
	return fmt.Sprintf("%s/%s", provider, subject)
}

// Seed installs a profile for the given identity, replacing any previous one.
func (f *FakeDirectory) Seed(provider providers.Name, subject string, profile directory.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[key(provider, subject)] = &identity{profile: profile}
}

// Onboarding returns the input recorded by the last CompleteOnboarding call
// for the identity, if any.
func (f *FakeDirectory) Onboarding(provider providers.Name, subject string) (directory.OnboardingInput, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.identities[key(provider, subject)]
	if !ok {
		return directory.OnboardingInput{}, false
	}
	return rec.onboarding, true
}

func (f *FakeDirectory) Lookup(ctx context.Context, provider providers.Name, subject, email string) (directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return directory.Profile{}, f.Fail
	}

	rec := f.get(provider, subject)
	return rec.profile, nil
}

func (f *FakeDirectory) CompleteOnboarding(ctx context.Context, provider providers.Name, subject, email string, input directory.OnboardingInput) (directory.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return directory.Profile{}, f.Fail
	}

	rec := f.get(provider, subject)
	rec.onboarding = input
	rec.profile.ProfileComplete = true
	return rec.profile, nil
}

func (f *FakeDirectory) AssignRole(ctx context.Context, provider providers.Name, subject, email string, role roles.Role) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail != nil {
		return "", f.Fail
	}

	rec := f.get(provider, subject)
	if !roles.Contains(rec.profile.EligibleRoles, role) {
		return "", fmt.Errorf("role %q not eligible for identity: %w", role, directory.ErrRejected)
	}
	if rec.profile.UserID == "" {
		rec.profile.UserID = uuid.NewString()
	}
	return rec.profile.UserID, nil
}

// get must be called with the mutex held.
func (f *FakeDirectory) get(provider providers.Name, subject string) *identity {
	k := key(provider, subject)
	rec, ok := f.identities[k]
	if !ok {
		rec = &identity{
			profile: directory.Profile{
				EligibleRoles:   []roles.Role{roles.Buyer},
				ProfileComplete: false,
			},
		}
		f.identities[k] = rec
	}
	return rec
}

var _ directory.Directory = (*FakeDirectory)(nil)
