package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/planfest/planfest-auth/internal/metrics"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/session"
)

// ContextKey is a private type for request-context keys.
type ContextKey string

const (
	ContextKeySubject  ContextKey = "subject"
	ContextKeyEmail    ContextKey = "email"
	ContextKeyRole     ContextKey = "role"
	ContextKeyProvider ContextKey = "provider"
)

// Routes that never require a session: the login flow itself plus the auth
// API, whose handlers answer 401 on their own.
var openPrefixes = []string{
	"/auth/",
	"/api/auth/",
}

var staticExtensions = map[string]bool{
	".css": true, ".js": true, ".map": true, ".ico": true,
	".png": true, ".jpg": true, ".svg": true, ".webp": true,
	".woff": true, ".woff2": true,
}

func openRoute(path string) bool {
	for _, prefix := range openPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func staticAsset(path string) bool {
	if strings.HasPrefix(path, "/static/") {
		return true
	}
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return staticExtensions[path[idx:]]
	}
	return false
}

func apiShaped(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// gate runs once per request before any handler: it admits open and static
// routes, decodes the session for everything else, pins each session variant
// to the routes it may reach, refreshes cookies near expiry, and forwards the
// identity as request-scoped values.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if openRoute(path) || staticAsset(path) {
			next.ServeHTTP(w, r)
			return
		}

		sess := s.sessionFromRequest(r)

		// The login landing page flips for authenticated users: they get
		// sent where their session already points.
		if path == RouteLogin {
			switch {
			case sess.Complete():
				http.Redirect(w, r, sess.Role.DefaultRoute(), http.StatusFound)
			case sess.Temporary():
				http.Redirect(w, r, temporaryStep(sess), http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
			return
		}

		if sess == nil {
			if apiShaped(path) {
				writeError(w, http.StatusUnauthorized, "no_session", "")
				return
			}
			http.Redirect(w, r, RouteLogin+"?redirect="+url.QueryEscape(path), http.StatusFound)
			return
		}

		if sess.Temporary() {
			step := temporaryStep(sess)
			if path != step {
				if apiShaped(path) {
					writeError(w, http.StatusForbidden, "incomplete_session", "finish sign-in before using this endpoint")
					return
				}
				http.Redirect(w, r, step, http.StatusFound)
				return
			}
		}

		// A role straying outside its area is sent home, never shown an
		// error page.
		if sess.Complete() {
			if foreign, ok := foreignRolePrefix(path, sess.Role); ok && foreign {
				http.Redirect(w, r, sess.Role.DefaultRoute(), http.StatusFound)
				return
			}
		}

		if s.codec.NeedsRefresh(sess) {
			refreshed, encoded, err := s.codec.Refresh(*sess)
			if err == nil {
				http.SetCookie(w, s.codec.Cookie(encoded, refreshed.ExpiresAt))
				metrics.SessionsRefreshed.Inc()
				sess = &refreshed
			}
		}

		ctx := context.WithValue(r.Context(), ContextKeySubject, sess.Subject)
		ctx = context.WithValue(ctx, ContextKeyEmail, sess.Email)
		ctx = context.WithValue(ctx, ContextKeyRole, string(sess.Role))
		ctx = context.WithValue(ctx, ContextKeyProvider, string(sess.Provider))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromRequest decodes the session cookie. Absent or invalid cookies
// yield nil; decode failures are indistinguishable from no session.
func (s *Server) sessionFromRequest(r *http.Request) *session.Session {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil
	}
	sess, ok := s.codec.Decode(cookie.Value)
	if !ok {
		return nil
	}
	return sess
}

func temporaryStep(sess *session.Session) string {
	if sess.NeedsOnboarding {
		return RouteOnboarding
	}
	return RouteSelectRole
}

// foreignRolePrefix reports whether path sits under a role area, and if so
// whether it belongs to a different role than the session's.
func foreignRolePrefix(path string, own roles.Role) (bool, bool) {
	for _, role := range roles.All() {
		prefix := role.RoutePrefix()
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return role != own, true
		}
	}
	return false, false
}
