package server

import (
	"html/template"
	"net/http"

	"github.com/planfest/planfest-auth/providers"
)

var loginTmpl = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Planfest — Sign in</title></head>
<body>
<h1>Sign in to Planfest</h1>
{{if .Error}}<p class="error">Sign-in failed: {{.Error}}</p>{{end}}
<ul>
{{range .Providers}}<li><a href="/auth/login/{{.}}{{if $.Redirect}}?redirect={{$.Redirect}}{{end}}">Continue with {{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

var stepTmpl = template.Must(template.New("step").Parse(`<!DOCTYPE html>
<html>
<head><title>Planfest — Almost there</title></head>
<body>
<h1>Almost there</h1>
<p>Your account {{.Hint}} before you can continue.</p>
</body>
</html>
`))

// handleLoginPage renders the provider chooser. The gate already redirected
// authenticated users away, so everyone arriving here is anonymous.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	available := make([]providers.Name, 0, len(s.registry))
	for _, name := range providers.All() {
		if _, ok := s.registry[name]; ok {
			available = append(available, name)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginTmpl.Execute(w, map[string]any{
		"Providers": available,
		"Error":     r.URL.Query().Get("error"),
		"Redirect":  safeReturnTarget(r.URL.Query().Get("redirect")),
	})
}

// handleStepPage serves the interstitial for a temporary-session step. The
// real frontend replaces these; the gateway only guarantees the routes exist.
func (s *Server) handleStepPage(hint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = stepTmpl.Execute(w, map[string]any{"Hint": hint})
	}
}
