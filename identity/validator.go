// Package identity verifies provider ID tokens and normalizes their claims.
// A token is either fully trusted after every check passes or rejected
// outright; no partial claim set is ever returned.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/planfest/planfest-auth/providers"
)

var (
	// ErrInvalidToken covers every structural or cryptographic failure:
	// malformed JWT, bad signature, issuer or audience mismatch, expired or
	// not-yet-valid token.
	ErrInvalidToken = errors.New("identity: invalid id token")

	// ErrEmailNotVerified rejects tokens whose provider requires a verified
	// email and whose email_verified claim is not true. Such tokens must
	// never produce a session.
	ErrEmailNotVerified = errors.New("identity: email not verified")
)

// Claims is the normalized identity produced by a successful validation.
// Consumed immediately to build or update a session; never persisted.
type Claims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Issuer        string
	Audience      string
	ExpiresAt     time.Time
	Provider      providers.Name
}

// Validator verifies ID tokens for every configured provider. It holds no
// per-login state and is safe for concurrent use across simultaneous login
// attempts; the underlying remote key sets fetch and cache provider signing
// keys on demand.
type Validator struct {
	verifiers map[providers.Name]providerVerifier
}

type providerVerifier struct {
	verifier      *oidc.IDTokenVerifier
	requireEmail  bool
	expectedAud   string
}

// NewValidator builds a validator from the provider registry, one remote key
// set per provider JWKS endpoint.
func NewValidator(ctx context.Context, reg providers.Registry) *Validator {
	v := &Validator{verifiers: make(map[providers.Name]providerVerifier, len(reg))}
	for name, client := range reg {
		settings := client.Settings()
		keySet := oidc.NewRemoteKeySet(ctx, settings.JWKSURL)
		v.register(name,
			oidc.NewVerifier(settings.Issuer, keySet, &oidc.Config{ClientID: client.ClientID()}),
			settings.RequireVerifiedEmail,
			client.ClientID(),
		)
	}
	return v
}

func (v *Validator) register(name providers.Name, verifier *oidc.IDTokenVerifier, requireEmail bool, aud string) {
	v.verifiers[name] = providerVerifier{
		verifier:     verifier,
		requireEmail: requireEmail,
		expectedAud:  aud,
	}
}

// rawClaims mirrors the provider claim payload. email_verified arrives as a
// bool from Google and as the string "true" from some Microsoft tenants.
type rawClaims struct {
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Name          string   `json:"name"`
	Picture       string   `json:"picture"`
	NotBefore     int64    `json:"nbf"`
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

// Validate verifies a raw ID token against the expected provider and returns
// its normalized claims. Check order: signature against the provider's
// published keys, exact issuer match, audience, temporal validity, then the
// provider's email_verified policy.
func (v *Validator) Validate(ctx context.Context, rawIDToken string, provider providers.Name) (Claims, error) {
	pv, ok := v.verifiers[provider]
	if !ok {
		return Claims{}, fmt.Errorf("%w: %s", providers.ErrUnknownProvider, provider)
	}

	idToken, err := pv.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var raw rawClaims
	if err := idToken.Claims(&raw); err != nil {
		return Claims{}, fmt.Errorf("%w: claims: %v", ErrInvalidToken, err)
	}

	// go-oidc checks exp but not nbf.
	if raw.NotBefore > 0 && time.Now().Unix() < raw.NotBefore {
		return Claims{}, fmt.Errorf("%w: token not yet valid", ErrInvalidToken)
	}

	if pv.requireEmail && !bool(raw.EmailVerified) {
		return Claims{}, fmt.Errorf("%w: %s", ErrEmailNotVerified, provider)
	}

	return Claims{
		Subject:       idToken.Subject,
		Email:         raw.Email,
		EmailVerified: bool(raw.EmailVerified),
		Name:          raw.Name,
		Picture:       raw.Picture,
		Issuer:        idToken.Issuer,
		Audience:      pv.expectedAud,
		ExpiresAt:     idToken.Expiry,
		Provider:      provider,
	}, nil
}
