package server

import (
	"encoding/json"
	"net/http"

	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/internal/metrics"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/session"
)

type sessionUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Role    string `json:"role"`
}

func userFrom(sess session.Session) sessionUser {
	return sessionUser{
		Sub:     sess.Subject,
		Email:   sess.Email,
		Name:    sess.Name,
		Picture: sess.Picture,
		Role:    string(sess.Role),
	}
}

// handleIssueSession validates a caller-supplied ID token and issues a
// session cookie. This is the API twin of the browser callback, used by
// clients that run the provider flow themselves.
func (s *Server) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken  string `json:"idToken"`
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IDToken == "" || body.Provider == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "idToken and provider are required")
		return
	}
	name, err := providers.ParseName(body.Provider)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	claims, err := s.validator.Validate(r.Context(), body.IDToken, name)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(name), "failure").Inc()
		s.writeFlowError(w, r, err)
		return
	}

	result, err := s.flow.Resolve(r.Context(), claims)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(string(name), "failure").Inc()
		s.writeFlowError(w, r, err)
		return
	}

	sess, encoded, err := s.codec.Issue(result.Session)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	http.SetCookie(w, s.codec.Cookie(encoded, sess.ExpiresAt))
	metrics.LoginsTotal.WithLabelValues(string(name), "success").Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"user":     userFrom(sess),
		"redirect": result.Redirect,
	})
}

// handleQuerySession reports the current session's non-sensitive claims and
// its expiry as a millisecond epoch.
func (s *Server) handleQuerySession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no_session", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":               userFrom(*sess),
		"provider":           string(sess.Provider),
		"status":             string(sess.Status),
		"needsOnboarding":    sess.NeedsOnboarding,
		"needsRoleSelection": sess.NeedsRoleSelection,
		"availableRoles":     sess.AvailableRoles,
		"expiresAt":          sess.ExpiresAt.UnixMilli(),
	})
}

// handleSelectRole runs the role-selection transition for the current
// temporary session and swaps the cookie for the complete variant.
func (s *Server) handleSelectRole(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no_session", "")
		return
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}

	result, err := s.flow.SelectRole(r.Context(), *sess, roles.Role(body.Role))
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	complete, encoded, err := s.codec.Issue(result.Session)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	http.SetCookie(w, s.codec.Cookie(encoded, complete.ExpiresAt))
	metrics.RoleSelections.WithLabelValues(string(complete.Role)).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"role":     string(complete.Role),
		"redirect": result.Redirect,
	})
}

// handleOnboarding records the profile submission and moves the session out
// of the onboarding state.
func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(r)
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "no_session", "")
		return
	}

	var body struct {
		FullName string `json:"fullName"`
		Phone    string `json:"phone"`
		Company  string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FullName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "fullName is required")
		return
	}

	result, err := s.flow.CompleteOnboarding(r.Context(), *sess, directory.OnboardingInput{
		FullName: body.FullName,
		Phone:    body.Phone,
		Company:  body.Company,
	})
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	next, encoded, err := s.codec.Issue(result.Session)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	http.SetCookie(w, s.codec.Cookie(encoded, next.ExpiresAt))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"redirect": result.Redirect,
	})
}

// handleLogout deletes the session cookie through two independent expiry
// mechanisms and tells every cache along the way not to keep the response.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, cookie := range s.codec.ClearCookies() {
		http.SetCookie(w, cookie)
	}
	s.clearTransactionCookie(w, r)

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
