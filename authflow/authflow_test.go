package authflow_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planfest/planfest-auth/authflow"
	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/directory/dirfake"
	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/session"
)

func testClaims() identity.Claims {
	return identity.Claims{
		Subject:  "sub-123",
		Email:    "ana@example.com",
		Name:     "Ana Torres",
		Picture:  "https://example.com/ana.jpg",
		Provider: providers.Google,
	}
}

func newService(t *testing.T) (*authflow.Service, *dirfake.FakeDirectory) {
	t.Helper()
	fake := dirfake.New()
	return authflow.New(fake, zerolog.Nop()), fake
}

func TestResolveNewUserNeedsOnboarding(t *testing.T) {
	svc, _ := newService(t)

	// Unknown identities default to a single-role, incomplete profile.
	result, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)

	assert.True(t, result.Session.Temporary())
	assert.True(t, result.Session.NeedsOnboarding)
	assert.False(t, result.Session.NeedsRoleSelection)
	assert.Equal(t, authflow.OnboardingRoute, result.Redirect)
	require.NoError(t, result.Session.Validate())
}

func TestResolveSingleRoleCompleteProfile(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{
		UserID:          "u-1",
		EligibleRoles:   []roles.Role{roles.Buyer},
		ProfileComplete: true,
	})

	result, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)

	assert.True(t, result.Session.Complete())
	assert.Equal(t, roles.Buyer, result.Session.Role)
	assert.Equal(t, "u-1", result.Session.UserID)
	assert.Equal(t, roles.Buyer.DefaultRoute(), result.Redirect)
	require.NoError(t, result.Session.Validate())
}

func TestResolveMultipleRolesNeedsSelection(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{
		EligibleRoles:   []roles.Role{roles.Organizer, roles.Supplier},
		ProfileComplete: true,
	})

	result, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)

	assert.True(t, result.Session.Temporary())
	assert.True(t, result.Session.NeedsRoleSelection)
	assert.Equal(t, []roles.Role{roles.Organizer, roles.Supplier}, result.Session.AvailableRoles)
	assert.Equal(t, authflow.RoleSelectionRoute, result.Redirect)
	require.NoError(t, result.Session.Validate())
}

func TestResolveNoEligibleRoles(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{ProfileComplete: true})

	_, err := svc.Resolve(context.Background(), testClaims())
	assert.ErrorIs(t, err, authflow.ErrNoEligibleRoles)
}

func TestResolveDirectoryUnavailable(t *testing.T) {
	svc, fake := newService(t)
	fake.Fail = directory.ErrUnavailable

	_, err := svc.Resolve(context.Background(), testClaims())
	assert.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestSelectRole(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{
		EligibleRoles:   []roles.Role{roles.Organizer, roles.Supplier},
		ProfileComplete: true,
	})

	resolved, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)
	require.True(t, resolved.Session.NeedsRoleSelection)

	result, err := svc.SelectRole(context.Background(), resolved.Session, roles.Supplier)
	require.NoError(t, err)

	assert.True(t, result.Session.Complete())
	assert.Equal(t, roles.Supplier, result.Session.Role)
	assert.NotEmpty(t, result.Session.UserID)
	assert.Empty(t, result.Session.AvailableRoles)
	assert.Equal(t, "/supplier/dashboard", result.Redirect)
	require.NoError(t, result.Session.Validate())
}

func TestSelectRoleRejections(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{
		EligibleRoles:   []roles.Role{roles.Organizer, roles.Supplier},
		ProfileComplete: true,
	})

	resolved, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)
	selecting := resolved.Session

	t.Run("role outside available set", func(t *testing.T) {
		_, err := svc.SelectRole(context.Background(), selecting, roles.Buyer)
		assert.ErrorIs(t, err, authflow.ErrRoleNotAvailable)
	})

	t.Run("unknown role string", func(t *testing.T) {
		_, err := svc.SelectRole(context.Background(), selecting, roles.Role("admin"))
		assert.ErrorIs(t, err, authflow.ErrRoleNotAvailable)
	})

	t.Run("complete session cannot reselect", func(t *testing.T) {
		done, err := svc.SelectRole(context.Background(), selecting, roles.Supplier)
		require.NoError(t, err)

		_, err = svc.SelectRole(context.Background(), done.Session, roles.Organizer)
		assert.ErrorIs(t, err, authflow.ErrInvalidSessionState)
	})

	t.Run("onboarding session cannot select", func(t *testing.T) {
		onboarding := session.NewTemporary(testClaims(), true, false, nil)
		_, err := svc.SelectRole(context.Background(), onboarding, roles.Organizer)
		assert.ErrorIs(t, err, authflow.ErrInvalidSessionState)
	})
}

func TestCompleteOnboarding(t *testing.T) {
	svc, fake := newService(t)

	resolved, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)
	require.True(t, resolved.Session.NeedsOnboarding)

	result, err := svc.CompleteOnboarding(context.Background(), resolved.Session,
		directory.OnboardingInput{FullName: "Ana Torres", Phone: "+34 600 000 000", Company: "Eventos Ana"})
	require.NoError(t, err)

	assert.True(t, result.Session.Complete())
	assert.Equal(t, roles.Buyer, result.Session.Role)
	assert.Equal(t, roles.Buyer.DefaultRoute(), result.Redirect)
	require.NoError(t, result.Session.Validate())

	input, ok := fake.Onboarding(providers.Google, "sub-123")
	require.True(t, ok)
	assert.Equal(t, "Eventos Ana", input.Company)
}

func TestCompleteOnboardingRejections(t *testing.T) {
	svc, fake := newService(t)
	fake.Seed(providers.Google, "sub-123", directory.Profile{
		UserID:          "u-1",
		EligibleRoles:   []roles.Role{roles.Buyer},
		ProfileComplete: true,
	})

	resolved, err := svc.Resolve(context.Background(), testClaims())
	require.NoError(t, err)
	require.True(t, resolved.Session.Complete())

	_, err = svc.CompleteOnboarding(context.Background(), resolved.Session, directory.OnboardingInput{})
	assert.ErrorIs(t, err, authflow.ErrInvalidSessionState)

	selecting := session.NewTemporary(testClaims(), false, true, []roles.Role{roles.Organizer, roles.Supplier})
	_, err = svc.CompleteOnboarding(context.Background(), selecting, directory.OnboardingInput{})
	assert.ErrorIs(t, err, authflow.ErrInvalidSessionState)
}
