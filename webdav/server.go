package webdav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Plugin is the extension hook contract: a plugin
// registers event subscribers during construction (before the server
// starts serving) and may optionally contribute HTTP verbs and DAV
// feature tokens to OPTIONS.
type Plugin interface {
	// Register wires the plugin's event subscribers onto s. Called once,
	// synchronously, from Server.Use.
	Register(s *Server)
}

// FeatureContributor is implemented by plugins that add tokens to the
// OPTIONS response's DAV header (e.g. "2" for class-2 locking).
type FeatureContributor interface {
	Features() []string
}

// MethodContributor is implemented by plugins that add verbs to the
// OPTIONS response's Allow header for a given URI (e.g. LOCK/UNLOCK).
type MethodContributor interface {
	HTTPMethods(ctx context.Context, uri string) []string
}

// Server is the WebDAV dispatcher. Its fields are set at construction and
// treated as read-only once requests start arriving; the only field callers mutate afterward is indirectly,
// through Tree/Registry/Events, which must themselves honor the same
// rule.
type Server struct {
	// Tree resolves paths to nodes. Required.
	Tree Tree

	// BaseURI is the path prefix this server answers under. Always
	// normalized to end in "/".
	BaseURI string

	// Registry parses client-submitted property values from
	// PROPPATCH/MKCOL bodies. If nil, NewServer installs a default one.
	Registry *PropertyRegistry

	// Events is the plugin hook bus. If nil, NewServer installs an empty
	// one.
	Events *EventBus

	// StagingDir is where PUT bodies are buffered before being handed to
	// the tree. Defaults to
	// os.TempDir().
	StagingDir string

	// Log receives per-request tracing and error logging. Defaults to
	// logrus.StandardLogger().
	Log logrus.FieldLogger

	plugins []Plugin
}

// NewServer builds a Server over tree, rooted at baseURI, with sensible
// defaults for everything else.
func NewServer(tree Tree, baseURI string) *Server {
	return &Server{
		Tree:       tree,
		BaseURI:    normalizeBaseURI(baseURI),
		Registry:   NewPropertyRegistry(),
		Events:     NewEventBus(),
		StagingDir: os.TempDir(),
		Log:        logrus.StandardLogger(),
	}
}

// Use registers a plugin, giving it the chance to subscribe to events and
// recording it for OPTIONS feature/method contribution. Must be called
// before the server starts handling requests.
func (s *Server) Use(p Plugin) {
	p.Register(s)
	s.plugins = append(s.plugins, p)
}

// ServeHTTP is the dispatcher's HTTP entry point.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	w.Header().Set("X-jsDAV-Version", Version)

	// beforeMethod subscribers (e.g. an auth gate) are handed w/r directly
	// because a veto here means the subscriber itself must have already
	// written the response.
	if vetoed := s.Events.Emit(EventBeforeMethod, r.Method, r.URL.RequestURI(), w, r); vetoed {
		return
	}

	handler, known := methodHandlers[r.Method]
	var werr *Error
	if !known {
		// Like EventBeforeMethod, EventUnknownMethod's subscriber is
		// handed the ResponseWriter directly: a verb the core dispatch
		// table doesn't know (LOCK/UNLOCK, a custom REPORT-like verb) has
		// no handler to call, so the plugin that claims it must write the
		// whole response itself and veto.
		if vetoed := s.Events.Emit(EventUnknownMethod, r.Method, w, r); !vetoed {
			werr = NewErrorf(KindNotImplemented, "method %s is not supported", r.Method)
		}
	} else {
		werr = handler(s, ctx, w, r)
	}

	if werr != nil {
		s.writeError(w, werr)
	}

	s.Log.WithFields(logrus.Fields{
		"method":   r.Method,
		"uri":      r.URL.RequestURI(),
		"duration": time.Since(start),
	}).Debug("webdav request")
}

var methodHandlers = map[string]func(*Server, context.Context, http.ResponseWriter, *http.Request) *Error{
	http.MethodOptions: (*Server).handleOptions,
	http.MethodGet:      (*Server).handleGet,
	http.MethodHead:     (*Server).handleHead,
	http.MethodPut:      (*Server).handlePut,
	http.MethodDelete:   (*Server).handleDelete,
	"MKCOL":             (*Server).handleMkcol,
	"COPY":              (*Server).handleCopy,
	"MOVE":              (*Server).handleMove,
	"PROPFIND":          (*Server).handlePropfind,
	"PROPPATCH":         (*Server).handleProppatch,
	"REPORT":            (*Server).handleReport,
}

// resolvePath runs calculateURI against the server's base URI for r,
// converting a Forbidden/BadRequest into the *Error the handler should
// surface.
func (s *Server) resolvePath(r *http.Request) (string, *Error) {
	return calculateURI(r.URL.Path, s.BaseURI)
}

// handleOptions implements OPTIONS.
func (s *Server) handleOptions(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	allow := []string{"OPTIONS", "GET", "HEAD", "PUT", "DELETE", "PROPFIND", "PROPPATCH", "COPY", "MOVE", "REPORT"}

	_, err := s.Tree.GetNodeForPath(ctx, path)
	if err != nil {
		// MKCOL is only offered when the URI is not yet mapped to a node.
		allow = append(allow, "MKCOL")
	}

	features := []string{"1", "3", "extended-mkcol"}
	for _, p := range s.plugins {
		if fc, ok := p.(FeatureContributor); ok {
			features = append(features, fc.Features()...)
		}
		if mc, ok := p.(MethodContributor); ok {
			allow = append(allow, mc.HTTPMethods(ctx, path)...)
		}
	}

	w.Header().Set("Allow", joinComma(allow))
	w.Header().Set("DAV", joinComma(features))
	w.Header().Set("MS-Author-Via", "DAV")
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)
	return nil
}

func joinComma(ss []string) string {
	var b bytes.Buffer
	for i, s := range ss {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s)
	}
	return b.String()
}

// writeError renders the <d:error> envelope and applies any header
// contributions the error carries.
func (s *Server) writeError(w http.ResponseWriter, err *Error) {
	for k, v := range err.Headers {
		w.Header().Set(k, v)
	}

	ns := NewNamespaceMap()
	d := ns.Prefix(davNamespace)
	a := ns.Prefix("http://jsdav.example.com/ns")

	var body bytes.Buffer
	fmt.Fprintf(&body, "<%s:exception>", a)
	escapeText(&body, string(err.Kind))
	fmt.Fprintf(&body, "</%s:exception>", a)
	fmt.Fprintf(&body, "<%s:message>", a)
	escapeText(&body, err.Message)
	fmt.Fprintf(&body, "</%s:message>", a)
	fmt.Fprintf(&body, "<%s:jsdav-version>%s</%s:jsdav-version>", a, Version, a)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(err.HTTPStatus())

	var out bytes.Buffer
	out.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&out, "<%s:error%s>", d, ns.Declarations())
	out.Write(body.Bytes())
	fmt.Fprintf(&out, "</%s:error>", d)
	w.Write(out.Bytes())
}
