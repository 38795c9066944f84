package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/planfest/planfest-auth/authflow"
	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeFlowError maps flow errors onto the HTTP taxonomy: protocol errors are
// 400/401, policy rejections 400/403, transport failures 503, and anything
// unrecognized an opaque 500.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var exchangeErr *providers.ExchangeError

	switch {
	case errors.As(err, &exchangeErr):
		writeError(w, http.StatusBadRequest, "exchange_rejected", exchangeErr.Error())
	case errors.Is(err, providers.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown_provider", "unsupported identity provider")
	case errors.Is(err, providers.ErrNoIDToken):
		writeError(w, http.StatusBadGateway, "no_id_token", "provider response did not include an identity token")
	case errors.Is(err, identity.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "email_not_verified", "the provider has not verified this email address")
	case errors.Is(err, identity.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid_token", "identity token could not be validated")
	case errors.Is(err, authflow.ErrNoEligibleRoles):
		writeError(w, http.StatusForbidden, "no_eligible_roles", "this account has no role in the marketplace")
	case errors.Is(err, authflow.ErrInvalidSessionState):
		writeError(w, http.StatusBadRequest, "invalid_session_state", "the session is not in the required state for this action")
	case errors.Is(err, authflow.ErrRoleNotAvailable):
		writeError(w, http.StatusBadRequest, "role_not_available", "the selected role is not available for this account")
	case errors.Is(err, roles.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, "unknown_role", "the selected role does not exist")
	case errors.Is(err, providers.ErrProviderUnreachable), errors.Is(err, directory.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable", "a dependency is unreachable, retry the login")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected flow error")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
