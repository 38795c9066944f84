package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/planfest/planfest-auth/pkce"
)

func testCreds() Credentials {
	return Credentials{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURL:  "https://app.planfest.test/auth/callback/google",
	}
}

func testClientWithTokenURL(t *testing.T, tokenURL string) *Client {
	t.Helper()
	c, err := New(Google, testCreds())
	require.NoError(t, err)
	c.conf.Endpoint = oauth2.Endpoint{
		AuthURL:   "https://idp.test/authorize",
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return c
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Google, Credentials{ClientID: "only-id"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(Google, Credentials{ClientSecret: "only-secret"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = New(Name("yahoo"), testCreds())
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestAuthCodeURL(t *testing.T) {
	for _, name := range All() {
		c, err := New(name, testCreds())
		require.NoError(t, err)

		p, err := pkce.Generate(string(name))
		require.NoError(t, err)

		u, err := url.Parse(c.AuthCodeURL(p))
		require.NoError(t, err)

		q := u.Query()
		require.Equal(t, "code", q.Get("response_type"))
		require.Equal(t, "client-123", q.Get("client_id"))
		require.Equal(t, p.Challenge, q.Get("code_challenge"))
		require.Equal(t, "S256", q.Get("code_challenge_method"))
		require.Equal(t, p.State, q.Get("state"))
		require.Contains(t, q.Get("scope"), "openid")
		require.Contains(t, q.Get("scope"), "email")
		require.NotContains(t, u.String(), p.Verifier, "verifier must never appear in the redirect")
	}
}

func TestAuthCodeURLProviderExtras(t *testing.T) {
	ms, err := New(Microsoft, testCreds())
	require.NoError(t, err)
	u, err := url.Parse(ms.AuthCodeURL(pkce.Params{State: "s", Challenge: "c"}))
	require.NoError(t, err)
	require.Contains(t, u.Query().Get("scope"), "User.Read")
	require.Equal(t, "select_account", u.Query().Get("prompt"))

	g, err := New(Google, testCreds())
	require.NoError(t, err)
	u, err = url.Parse(g.AuthCodeURL(pkce.Params{State: "s", Challenge: "c"}))
	require.NoError(t, err)
	require.Equal(t, "select_account", u.Query().Get("prompt"))
}

func TestExchange(t *testing.T) {
	var gotForm url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"id_token":     "header.payload.signature",
		})
	}))
	defer ts.Close()

	c := testClientWithTokenURL(t, ts.URL)
	raw, err := c.Exchange(context.Background(), "auth-code-1", "verifier-1")
	require.NoError(t, err)
	require.Equal(t, "header.payload.signature", raw)

	// The exchange must be a form POST bundling the full credential set.
	require.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	require.Equal(t, "auth-code-1", gotForm.Get("code"))
	require.Equal(t, "verifier-1", gotForm.Get("code_verifier"))
	require.Equal(t, "client-123", gotForm.Get("client_id"))
	require.Equal(t, "secret-456", gotForm.Get("client_secret"))
	require.Equal(t, "https://app.planfest.test/auth/callback/google", gotForm.Get("redirect_uri"))
}

func TestExchangeProviderRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "code already redeemed",
		})
	}))
	defer ts.Close()

	c := testClientWithTokenURL(t, ts.URL)
	_, err := c.Exchange(context.Background(), "spent-code", "verifier")
	require.Error(t, err)

	var exchangeErr *ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	require.Equal(t, http.StatusBadRequest, exchangeErr.StatusCode)
	require.Equal(t, "invalid_grant", exchangeErr.Code)
	require.Equal(t, "code already redeemed", exchangeErr.Description)
}

func TestExchangeNoIDToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
		})
	}))
	defer ts.Close()

	c := testClientWithTokenURL(t, ts.URL)
	_, err := c.Exchange(context.Background(), "code", "verifier")
	require.ErrorIs(t, err, ErrNoIDToken)
}

func TestExchangeTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	c := testClientWithTokenURL(t, ts.URL)
	_, err := c.Exchange(context.Background(), "code", "verifier")
	require.ErrorIs(t, err, ErrProviderUnreachable)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(map[Name]Credentials{
		Google: testCreds(),
		Meta:   testCreds(),
	})
	require.NoError(t, err)

	g, err := reg.Get(Google)
	require.NoError(t, err)
	require.Equal(t, Google, g.Name())

	_, err = reg.Get(Microsoft)
	require.ErrorIs(t, err, ErrUnknownProvider)

	_, err = NewRegistry(nil)
	require.ErrorIs(t, err, ErrMissingCredentials)
}
