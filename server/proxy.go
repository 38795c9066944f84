package server

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/planfest/planfest-auth/roles"
)

// serveUpstream hands a role-area request to that role's upstream. The gate
// has already established that the session owns this prefix. Without a
// configured upstream the gateway serves a plain placeholder so default
// routes still land somewhere during development.
func (s *Server) serveUpstream(w http.ResponseWriter, r *http.Request, role roles.Role) {
	upstream, ok := s.upstreams[role]
	if !ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><html><body><h1>%s</h1><p>No upstream configured for this area.</p></body></html>",
			role.DisplayName())
		return
	}
	upstream.ServeHTTP(w, r)
}

// NewUpstreamProxy builds a reverse proxy to a role-area application server.
// The authenticated identity travels as request headers so the upstream never
// has to understand the session cookie.
func NewUpstreamProxy(target string, log zerolog.Logger) (http.Handler, error) {
	targetURL, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", target, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)
	proxy.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = targetURL.Host

		ctx := req.Context()
		setIdentityHeader(req, "X-User-Sub", ctx.Value(ContextKeySubject))
		setIdentityHeader(req, "X-User-Email", ctx.Value(ContextKeyEmail))
		setIdentityHeader(req, "X-User-Role", ctx.Value(ContextKeyRole))
		setIdentityHeader(req, "X-User-Provider", ctx.Value(ContextKeyProvider))
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error().Err(err).Str("target", target).Str("path", r.URL.Path).Msg("upstream proxy error")
		writeError(w, http.StatusBadGateway, "upstream_error", "")
	}

	return proxy, nil
}

func setIdentityHeader(req *http.Request, name string, value any) {
	s, ok := value.(string)
	if !ok || s == "" {
		req.Header.Del(name)
		return
	}
	req.Header.Set(name, s)
}
