package webdav

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// handleMkcol implements MKCOL, including RFC 5689 extended
// MKCOL bodies.
func (s *Server) handleMkcol(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	body, rerr := io.ReadAll(r.Body)
	if rerr != nil {
		return NewErrorf(KindServerError, "cannot read MKCOL body: %v", rerr)
	}

	var resourceTypes []string
	var properties []PropertyMutation

	if len(body) == 0 {
		resourceTypes = []string{string(toClark(davNamespace, "collection"))}
	} else {
		ct := r.Header.Get("Content-Type")
		if !strings.Contains(ct, "xml") {
			return NewError(KindUnsupportedMediaType, "MKCOL body must be application/xml or text/xml")
		}

		root, xerr := parseXMLBody(strings.NewReader(string(body)))
		if xerr != nil {
			return NewErrorf(KindBadRequest, "cannot parse MKCOL body: %v", xerr)
		}
		if root.Name != toClark(davNamespace, "mkcol") {
			return NewError(KindBadRequest, "MKCOL body must be rooted at {DAV:}mkcol")
		}

		setEl, ok := root.firstChild(toClark(davNamespace, "set"))
		if !ok {
			return NewError(KindBadRequest, "MKCOL body missing {DAV:}set")
		}
		propEl, ok := setEl.firstChild(toClark(davNamespace, "prop"))
		if !ok {
			return NewError(KindBadRequest, "MKCOL body missing {DAV:}prop")
		}

		rtEl, ok := propEl.firstChild(toClark(davNamespace, "resourcetype"))
		if !ok {
			return NewError(KindBadRequest, "MKCOL body missing {DAV:}resourcetype")
		}
		for _, n := range rtEl.childNames() {
			resourceTypes = append(resourceTypes, string(n))
		}

		for _, p := range propEl.Children {
			if p.Name == toClark(davNamespace, "resourcetype") {
				continue
			}
			name, value := s.Registry.Parse(p)
			properties = append(properties, PropertyMutation{Name: string(name), Value: value})
		}
	}

	resp, cerr := s.createCollection(ctx, path, resourceTypes, properties)
	if cerr != nil {
		return cerr
	}
	if resp != nil {
		body := RenderMultiStatus([]*MultiStatusResponse{resp})
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		w.Write(body)
		return nil
	}

	w.WriteHeader(http.StatusCreated)
	return nil
}
