package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/planfest/planfest-auth/internal/metrics"
	"github.com/planfest/planfest-auth/pkce"
	"github.com/planfest/planfest-auth/providers"
)

// loginTxCookie carries the sealed PKCE transaction across the provider
// round-trip. Short-lived: it only needs to survive the redirect.
const loginTxCookie = "planfest_login_tx"

// handleLoginStart begins the authorization-code flow for one provider:
// generate PKCE parameters, seal them into the transaction cookie, and send
// the browser to the provider's consent screen.
func (s *Server) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	name, err := providers.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	client, err := s.registry.Get(name)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	// An already-complete session skips the provider entirely.
	if sess := s.sessionFromRequest(r); sess.Complete() {
		http.Redirect(w, r, sess.Role.DefaultRoute(), http.StatusFound)
		return
	}

	params, err := pkce.Generate(string(name))
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	tx := pkce.Transaction{
		Params:    params,
		ReturnTo:  safeReturnTarget(r.URL.Query().Get("redirect")),
		CreatedAt: s.now(),
	}
	payload, err := json.Marshal(tx)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	sealed, err := s.txBox.Seal(payload)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     loginTxCookie,
		Value:    sealed,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.txTTL.Seconds()),
	})
	http.Redirect(w, r, client.AuthCodeURL(params), http.StatusFound)
}

// handleCallback completes the flow: verify the transaction, exchange the
// code, validate the identity token, and issue the session cookie. Failures
// send the browser back to the login page; a half-finished login never gets a
// session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	name, err := providers.ParseName(chi.URLParam(r, "provider"))
	if err != nil {
		s.failLogin(w, r, "unknown", "unknown_provider", err)
		return
	}

	if errParam := r.FormValue("error"); errParam != "" {
		s.failLogin(w, r, string(name), "provider_denied",
			fmt.Errorf("provider returned %q: %s", errParam, r.FormValue("error_description")))
		return
	}

	code := r.FormValue("code")
	state := r.FormValue("state")
	if code == "" || state == "" {
		s.failLogin(w, r, string(name), "missing_parameters", fmt.Errorf("callback missing code or state"))
		return
	}

	tx, ok := s.openTransaction(r, name, state)
	s.clearTransactionCookie(w, r)
	if !ok {
		s.failLogin(w, r, string(name), "invalid_state", fmt.Errorf("transaction cookie missing, expired, or state mismatch"))
		return
	}

	client, err := s.registry.Get(name)
	if err != nil {
		s.failLogin(w, r, string(name), "unknown_provider", err)
		return
	}

	rawIDToken, err := client.Exchange(r.Context(), code, tx.Params.Verifier)
	if err != nil {
		metrics.TokenExchangeFailures.WithLabelValues(string(name)).Inc()
		s.failLogin(w, r, string(name), "exchange_failed", err)
		return
	}

	claims, err := s.validator.Validate(r.Context(), rawIDToken, name)
	if err != nil {
		s.failLogin(w, r, string(name), "invalid_token", err)
		return
	}

	result, err := s.flow.Resolve(r.Context(), claims)
	if err != nil {
		s.failLogin(w, r, string(name), "resolve_failed", err)
		return
	}

	sess, encoded, err := s.codec.Issue(result.Session)
	if err != nil {
		s.failLogin(w, r, string(name), "session_issue_failed", err)
		return
	}
	http.SetCookie(w, s.codec.Cookie(encoded, sess.ExpiresAt))
	metrics.LoginsTotal.WithLabelValues(string(name), "success").Inc()

	destination := result.Redirect
	if sess.Complete() && tx.ReturnTo != "" {
		destination = tx.ReturnTo
	}
	http.Redirect(w, r, destination, http.StatusFound)
}

// openTransaction unseals the login transaction cookie and checks it against
// the callback's state and the transaction TTL.
func (s *Server) openTransaction(r *http.Request, name providers.Name, state string) (pkce.Transaction, bool) {
	cookie, err := r.Cookie(loginTxCookie)
	if err != nil {
		return pkce.Transaction{}, false
	}
	payload, err := s.txBox.Open(cookie.Value)
	if err != nil {
		return pkce.Transaction{}, false
	}

	var tx pkce.Transaction
	if err := json.Unmarshal(payload, &tx); err != nil {
		return pkce.Transaction{}, false
	}
	if tx.Params.State == "" || tx.Params.State != state {
		return pkce.Transaction{}, false
	}
	if tx.Params.Provider != string(name) {
		return pkce.Transaction{}, false
	}
	if s.now().Sub(tx.CreatedAt) > s.txTTL {
		return pkce.Transaction{}, false
	}
	return tx, true
}

func (s *Server) clearTransactionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     loginTxCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// failLogin counts the failure and sends the browser back to the login page
// with a stable error code. Details stay in the log, not the URL.
func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, provider, code string, err error) {
	metrics.LoginsTotal.WithLabelValues(provider, "failure").Inc()
	s.log.Warn().Err(err).Str("provider", provider).Str("code", code).Msg("login failed")
	http.Redirect(w, r, RouteLogin+"?error="+code, http.StatusFound)
}

// safeReturnTarget keeps post-login redirects inside the site. Anything that
// is not a plain absolute path is dropped.
func safeReturnTarget(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	return target
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
