// Package lockplugin is a demonstration LOCK/UNLOCK plugin, outside the
// core WebDAV contract. It shows how a Plugin claims an
// HTTP verb the core dispatcher does not itself handle: subscribe to
// webdav.EventUnknownMethod, write the response itself, and veto.
//
// Token storage uses a TTL cache (github.com/pmylund/go-cache) sized for
// lock leases rather than a remote API's lookup cache. Token minting
// uses github.com/google/uuid.
package lockplugin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	gocache "github.com/pmylund/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/mcooley/jsDAV/webdav"
)

const (
	lockKeyPrefix  = "lock:"
	defaultTimeout = 5 * time.Minute
)

// Plugin grants exclusive-write locks on a path for a bounded time. It
// does not implement the full RFC 4918 lock-token/If-header negotiation;
// it is a minimal class-2 demonstration, not a compliance requirement of
// the core.
type Plugin struct {
	tokens *gocache.Cache
}

var (
	_ webdav.Plugin             = (*Plugin)(nil)
	_ webdav.FeatureContributor = (*Plugin)(nil)
	_ webdav.MethodContributor  = (*Plugin)(nil)
)

// New returns a lock plugin whose tokens expire after timeout (or
// defaultTimeout, if timeout is zero or negative).
func New(timeout time.Duration) *Plugin {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Plugin{tokens: gocache.New(timeout, timeout/2)}
}

// Register subscribes the plugin's LOCK/UNLOCK handling onto s.
func (p *Plugin) Register(s *webdav.Server) {
	s.Events.Subscribe(webdav.EventUnknownMethod, func(args ...interface{}) bool {
		method, _ := args[0].(string)
		w, _ := args[1].(http.ResponseWriter)
		r, _ := args[2].(*http.Request)
		if w == nil || r == nil {
			return false
		}
		switch method {
		case "LOCK":
			p.lock(w, r)
			return true
		case "UNLOCK":
			p.unlock(w, r)
			return true
		}
		return false
	})
}

// Features contributes the class-2 locking token to OPTIONS' DAV header.
func (p *Plugin) Features() []string {
	return []string{"2"}
}

// HTTPMethods contributes LOCK/UNLOCK to OPTIONS' Allow header.
func (p *Plugin) HTTPMethods(_ context.Context, _ string) []string {
	return []string{"LOCK", "UNLOCK"}
}

func (p *Plugin) lock(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	key := lockKeyPrefix + path

	if existing, found := p.tokens.Get(key); found {
		log.Debugf("lock: %v already held by %v", path, existing)
		w.WriteHeader(http.StatusLocked)
		return
	}

	token := fmt.Sprintf("urn:uuid:%s", uuid.NewString())
	p.tokens.SetDefault(key, token)
	log.Debugf("lock: %v granted %v", path, token)

	w.Header().Set("Lock-Token", "<"+token+">")
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="utf-8"?><d:prop xmlns:d="DAV:"><d:lockdiscovery><d:activelock><d:locktype><d:write/></d:locktype><d:lockscope><d:exclusive/></d:lockscope><d:depth>0</d:depth><d:locktoken><d:href>%s</d:href></d:locktoken></d:activelock></d:lockdiscovery></d:prop>`, token)
}

func (p *Plugin) unlock(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	key := lockKeyPrefix + path

	submitted := extractLockToken(r.Header.Get("Lock-Token"))
	held, found := p.tokens.Get(key)
	if !found {
		w.WriteHeader(http.StatusConflict)
		return
	}
	if submitted == "" || held.(string) != submitted {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	p.tokens.Delete(key)
	log.Debugf("unlock: %v released", path)
	w.WriteHeader(http.StatusNoContent)
}

func extractLockToken(header string) string {
	if len(header) >= 2 && header[0] == '<' && header[len(header)-1] == '>' {
		return header[1 : len(header)-1]
	}
	return header
}
