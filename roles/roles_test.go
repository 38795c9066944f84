package roles_test

import (
	"testing"

	"github.com/planfest/planfest-auth/roles"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, name := range []string{"organizer", "supplier", "buyer"} {
		r, err := roles.Parse(name)
		require.NoError(t, err)
		require.Equal(t, name, string(r))
	}

	for _, name := range []string{"", "admin", "Organizador", "ORGANIZER"} {
		_, err := roles.Parse(name)
		require.ErrorIs(t, err, roles.ErrUnknownRole)
	}
}

// Every role must map to a display name, a default route, and a route prefix.
func TestMappingsAreTotal(t *testing.T) {
	for _, r := range roles.All() {
		require.NotEmpty(t, r.DisplayName())
		require.NotEqual(t, string(r), r.DisplayName())
		require.NotEmpty(t, r.DefaultRoute())
		require.NotEmpty(t, r.RoutePrefix())
		require.Contains(t, r.DefaultRoute(), r.RoutePrefix())
	}
}

func TestAllStableOrder(t *testing.T) {
	require.Equal(t, []roles.Role{roles.Organizer, roles.Supplier, roles.Buyer}, roles.All())
	require.Equal(t, roles.All(), roles.All())
}

func TestContains(t *testing.T) {
	set := []roles.Role{roles.Organizer, roles.Supplier}
	require.True(t, roles.Contains(set, roles.Supplier))
	require.False(t, roles.Contains(set, roles.Buyer))
	require.False(t, roles.Contains(nil, roles.Buyer))
}
