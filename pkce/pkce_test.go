package pkce_test

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/planfest/planfest-auth/pkce"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	p, err := pkce.Generate("google")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(p.Verifier), 43)
	require.LessOrEqual(t, len(p.Verifier), 128)
	_, err = base64.RawURLEncoding.DecodeString(p.Verifier)
	require.NoError(t, err, "verifier must be unpadded base64url")

	// Challenge law: base64url(SHA256(verifier)) == challenge.
	sum := sha256.Sum256([]byte(p.Verifier))
	require.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), p.Challenge)

	// State is hex, 16 bytes of entropy.
	sb, err := hex.DecodeString(p.State)
	require.NoError(t, err)
	require.Len(t, sb, 16)

	require.Equal(t, "google", p.Provider)
}

func TestGenerateUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		p, err := pkce.Generate("microsoft")
		require.NoError(t, err)
		require.False(t, seen[p.Verifier], "verifier reuse")
		require.False(t, seen[p.State], "state reuse")
		seen[p.Verifier] = true
		seen[p.State] = true
	}
}

// RFC 7636 appendix B test vector.
func TestChallengeVector(t *testing.T) {
	require.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		pkce.Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}
