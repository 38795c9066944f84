// Package providers holds the identity provider table and the single
// parametrized OAuth2 client used for authorization redirects and
// code-for-token exchanges. Provider differences live in data (endpoints,
// scopes, extra parameters), not in duplicated logic.
package providers

import (
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// Name identifies a supported identity provider.
type Name string

const (
	Google    Name = "google"
	Microsoft Name = "microsoft"
	Meta      Name = "meta"
)

var ErrUnknownProvider = errors.New("providers: unknown provider")

// ParseName validates a provider name received from a client.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case Google, Microsoft, Meta:
		return Name(s), nil
	}
	return "", ErrUnknownProvider
}

// All returns the supported providers in a stable order.
func All() []Name {
	return []Name{Google, Microsoft, Meta}
}

// Settings is the static per-provider configuration record. Credentials are
// supplied separately from the environment.
type Settings struct {
	Endpoint oauth2.Endpoint
	Scopes   []string

	// ExtraAuthParams are appended to every authorization redirect, e.g. a
	// provider hint that forces the account chooser.
	ExtraAuthParams map[string]string

	// Issuer and JWKSURL drive ID token verification for tokens minted by
	// this provider.
	Issuer  string
	JWKSURL string

	// RequireVerifiedEmail rejects tokens whose email_verified claim is not
	// true. Google asserts the claim reliably, so it is enforced there.
	RequireVerifiedEmail bool
}

var settingsTable = map[Name]Settings{
	Google: {
		Endpoint: google.Endpoint,
		Scopes:   []string{"openid", "email", "profile"},
		ExtraAuthParams: map[string]string{
			"prompt": "select_account",
		},
		Issuer:               "https://accounts.google.com",
		JWKSURL:              "https://www.googleapis.com/oauth2/v3/certs",
		RequireVerifiedEmail: true,
	},
	Microsoft: {
		Endpoint: microsoft.AzureADEndpoint("consumers"),
		Scopes:   []string{"openid", "email", "profile", "User.Read"},
		ExtraAuthParams: map[string]string{
			"prompt": "select_account",
		},
		Issuer:  "https://login.microsoftonline.com/9188040d-6c67-4c5b-b112-36a304b66dad/v2.0",
		JWKSURL: "https://login.microsoftonline.com/consumers/discovery/v2.0/keys",
	},
	Meta: {
		Endpoint: facebook.Endpoint,
		Scopes:   []string{"openid", "email", "public_profile"},
		ExtraAuthParams: map[string]string{
			"auth_type": "rerequest",
		},
		Issuer:  "https://www.facebook.com",
		JWKSURL: "https://www.facebook.com/.well-known/oauth/openid/jwks/",
	},
}

// SettingsFor returns the static settings record for a provider.
func SettingsFor(name Name) (Settings, error) {
	s, ok := settingsTable[name]
	if !ok {
		return Settings{}, ErrUnknownProvider
	}
	return s, nil
}
