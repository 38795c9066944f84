package secretbox_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/planfest/planfest-auth/internal/secretbox"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, secretbox.KeyLength)
}

func TestRoundTrip(t *testing.T) {
	box, err := secretbox.New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal([]byte(`{"verifier":"abc","state":"123"}`))
	require.NoError(t, err)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, `{"verifier":"abc","state":"123"}`, string(opened))
}

func TestSealIsRandomized(t *testing.T) {
	box, err := secretbox.New(testKey())
	require.NoError(t, err)

	a, err := box.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := box.Seal([]byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpenRejectsTampering(t *testing.T) {
	box, err := secretbox.New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("sensitive"))
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)

	// Flipping any single byte must fail authentication.
	for i := range raw {
		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0x01
		_, err := box.Open(base64.RawURLEncoding.EncodeToString(mutated))
		require.ErrorIs(t, err, secretbox.ErrOpenFailed, "byte %d", i)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	box, err := secretbox.New(testKey())
	require.NoError(t, err)

	for _, in := range []string{"", "notbase64!!", base64.RawURLEncoding.EncodeToString([]byte("short"))} {
		_, err := box.Open(in)
		require.ErrorIs(t, err, secretbox.ErrOpenFailed)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	box, err := secretbox.New(testKey())
	require.NoError(t, err)
	other, err := secretbox.New(bytes.Repeat([]byte{0x99}, secretbox.KeyLength))
	require.NoError(t, err)

	sealed, err := box.Seal([]byte("value"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.ErrorIs(t, err, secretbox.ErrOpenFailed)
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := secretbox.New([]byte("too short"))
	require.ErrorIs(t, err, secretbox.ErrInvalidKey)

	_, err = secretbox.NewFromBase64("%%%")
	require.ErrorIs(t, err, secretbox.ErrInvalidKey)

	_, err = secretbox.NewFromBase64(base64.StdEncoding.EncodeToString(testKey()))
	require.NoError(t, err)
}
