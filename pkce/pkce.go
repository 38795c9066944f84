// Package pkce implements the Proof Key for Code Exchange parameters
// (RFC 7636) used to bind an authorization code to the login attempt that
// requested it.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	verifierBytes = 32
	stateBytes    = 16
)

// ErrEntropyUnavailable signals that the platform cannot supply secure
// randomness. This is fatal for the login attempt and must not be retried.
var ErrEntropyUnavailable = errors.New("pkce: entropy source unavailable")

// Params is a verifier/challenge/state triple for a single login attempt.
// It lives only in a short-lived client-side transaction cookie and is
// discarded once the callback consumes it.
type Params struct {
	Verifier  string `json:"verifier"`
	Challenge string `json:"challenge"`
	State     string `json:"state"`
	Provider  string `json:"provider"`
}

// Generate produces fresh PKCE parameters for the given provider.
// The verifier is 32 bytes of randomness encoded as unpadded base64url,
// which lands at 43 characters, inside the 43-128 bound RFC 7636 mandates.
// The state is random hex used purely for CSRF binding.
func Generate(provider string) (Params, error) {
	vb := make([]byte, verifierBytes)
	if _, err := rand.Read(vb); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	sb := make([]byte, stateBytes)
	if _, err := rand.Read(sb); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(vb)
	return Params{
		Verifier:  verifier,
		Challenge: Challenge(verifier),
		State:     hex.EncodeToString(sb),
		Provider:  provider,
	}, nil
}

// Challenge computes the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Transaction is the record sealed into the login transaction cookie between
// the authorization redirect and the provider callback.
type Transaction struct {
	Params    Params    `json:"params"`
	ReturnTo  string    `json:"return_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
