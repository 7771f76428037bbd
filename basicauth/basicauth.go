// Package basicauth is a demonstration auth gate plugin: a single
// hardcoded username/password checked via HTTP Basic auth, wired in as
// a webdav.EventBeforeMethod subscriber instead of an http.Handler
// wrapper, so it plugs into the dispatcher's own extension point
// rather than sitting in front of it.
package basicauth

import (
	"crypto/subtle"
	"net/http"

	"github.com/mcooley/jsDAV/webdav"
)

// Plugin rejects any request lacking valid HTTP Basic credentials for a
// single configured user.
type Plugin struct {
	Realm    string
	Username string
	Password string
}

var _ webdav.Plugin = (*Plugin)(nil)

// New returns a plugin gating every request behind username/password.
func New(realm, username, password string) *Plugin {
	if realm == "" {
		realm = "jsDAV"
	}
	return &Plugin{Realm: realm, Username: username, Password: password}
}

// Register subscribes the credential check onto s. Registered first by
// convention, so it runs before any other beforeMethod subscriber.
func (p *Plugin) Register(s *webdav.Server) {
	s.Events.Subscribe(webdav.EventBeforeMethod, func(args ...interface{}) bool {
		w, _ := args[2].(http.ResponseWriter)
		r, _ := args[3].(*http.Request)
		if w == nil || r == nil {
			return false
		}

		u, pass, ok := r.BasicAuth()
		if ok &&
			subtle.ConstantTimeCompare([]byte(u), []byte(p.Username)) == 1 &&
			subtle.ConstantTimeCompare([]byte(pass), []byte(p.Password)) == 1 {
			return false
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="`+p.Realm+`"`)
		w.WriteHeader(http.StatusUnauthorized)
		return true
	})
}
