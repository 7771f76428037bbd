package webdav

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
)

// defaultAllpropNames is the set of live properties an allprop/propname
// request returns even when the node has no matching dead property of its
// own.
var defaultAllpropNames = []clarkName{
	toClark(davNamespace, "getlastmodified"),
	toClark(davNamespace, "getcontentlength"),
	toClark(davNamespace, "resourcetype"),
	toClark(davNamespace, "quota-used-bytes"),
	toClark(davNamespace, "quota-available-bytes"),
	toClark(davNamespace, "getetag"),
	toClark(davNamespace, "getcontenttype"),
}

// propfindRequest is the decoded PROPFIND body.
type propfindRequest struct {
	AllProp  bool
	PropName bool
	Names    []string
}

// handlePropfind implements PROPFIND.
func (s *Server) handlePropfind(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	node, err := s.Tree.GetNodeForPath(ctx, path)
	if err != nil {
		return AsError(err)
	}

	body, rerr := io.ReadAll(r.Body)
	if rerr != nil {
		return NewErrorf(KindServerError, "cannot read PROPFIND body: %v", rerr)
	}
	req, perr2 := parsePropfindBody(body)
	if perr2 != nil {
		return perr2
	}

	depth := clampDepth(r.Header.Get("Depth"))

	type target struct {
		path string
		node Node
	}
	targets := []target{{path, node}}
	if depth == 1 {
		if coll, ok := node.(Collection); ok {
			children, cerr := coll.GetChildren(ctx)
			if cerr != nil {
				return AsError(cerr)
			}
			for _, c := range children {
				targets = append(targets, target{joinPath(path, c.Name()), c})
			}
		}
	}

	responses := make([]*MultiStatusResponse, 0, len(targets))
	for _, t := range targets {
		resp := s.gatherPropertiesForNode(ctx, t.path, t.node, req)
		s.Events.Emit(EventAfterGetProperties, t.path, resp)
		responses = append(responses, resp)
	}

	out := RenderMultiStatus(responses)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write(out)
	return nil
}

// parsePropfindBody decodes a PROPFIND request body.
func parsePropfindBody(body []byte) (propfindRequest, *Error) {
	if len(body) == 0 {
		return propfindRequest{AllProp: true}, nil
	}

	root, xerr := parseXMLBody(bytes.NewReader(body))
	if xerr != nil {
		return propfindRequest{}, NewErrorf(KindBadRequest, "cannot parse PROPFIND body: %v", xerr)
	}
	if root.Name != toClark(davNamespace, "propfind") {
		return propfindRequest{}, NewError(KindBadRequest, "PROPFIND body must be rooted at {DAV:}propfind")
	}

	if _, ok := root.firstChild(toClark(davNamespace, "allprop")); ok {
		return propfindRequest{AllProp: true}, nil
	}
	if _, ok := root.firstChild(toClark(davNamespace, "propname")); ok {
		return propfindRequest{PropName: true}, nil
	}
	if propEl, ok := root.firstChild(toClark(davNamespace, "prop")); ok {
		var names []string
		for _, c := range propEl.Children {
			names = append(names, string(c.Name))
		}
		return propfindRequest{Names: names}, nil
	}

	return propfindRequest{AllProp: true}, nil
}

// clampDepth implements "clamp to {0, 1}": an explicit "0"
// stays 0, anything else (missing header, "1", or "infinity", which the
// core does not support) is treated as 1.
func clampDepth(header string) int {
	if header == "0" {
		return 0
	}
	return 1
}

// gatherPropertiesForNode implements getPropertiesForPath for a
// single node.
func (s *Server) gatherPropertiesForNode(ctx context.Context, path string, node Node, req propfindRequest) *MultiStatusResponse {
	resp := NewResponse(hrefFor(s.BaseURI, path, isCollectionNode(node)))

	props, isProps := node.(Properties)
	var declared map[string]PropertyValue

	var orderedNames []string
	seen := map[string]bool{}

	if req.AllProp || req.PropName {
		if isProps {
			declared, _ = props.GetProperties(ctx, nil)
		}
		for _, n := range defaultAllpropNames {
			if !seen[string(n)] {
				seen[string(n)] = true
				orderedNames = append(orderedNames, string(n))
			}
		}
		var extra []string
		for n := range declared {
			if !seen[n] {
				extra = append(extra, n)
			}
		}
		sort.Strings(extra)
		for _, n := range extra {
			seen[n] = true
			orderedNames = append(orderedNames, n)
		}
	} else {
		for _, n := range req.Names {
			if !seen[n] {
				seen[n] = true
				orderedNames = append(orderedNames, n)
			}
		}
		if isProps {
			declared, _ = props.GetProperties(ctx, req.Names)
		}
	}

	// resourcetype is always resolved, even if the client didn't ask for
	// it, since its value decides the href's trailing slash; if it was added only for that purpose, it is stripped
	// back out of the response before returning.
	resourcetypeName := string(toClark(davNamespace, "resourcetype"))
	autoAdded := !seen[resourcetypeName]
	if autoAdded {
		orderedNames = append(orderedNames, resourcetypeName)
		seen[resourcetypeName] = true
	}

	for _, name := range orderedNames {
		value, ok := declared[name]
		if !ok {
			value, ok = s.resolveBuiltinProperty(ctx, node, clarkName(name))
		}
		if !ok {
			if !req.PropName {
				resp.AddProp(http.StatusNotFound, clarkName(name), nil)
			}
			continue
		}
		if req.PropName {
			resp.AddProp(http.StatusOK, clarkName(name), nil)
		} else {
			resp.AddProp(http.StatusOK, clarkName(name), value)
		}
	}

	if autoAdded {
		removeProp(resp, clarkName(resourcetypeName))
	}

	return resp
}

// resolveBuiltinProperty computes one of the live properties the core
// knows how to derive directly from a node's capabilities. ok is false if the node lacks the capability needed to answer.
func (s *Server) resolveBuiltinProperty(ctx context.Context, node Node, name clarkName) (PropertyValue, bool) {
	switch name {
	case toClark(davNamespace, "getlastmodified"):
		if f, ok := node.(File); ok {
			if t, err := f.LastModified(ctx); err == nil {
				return DateValue(t), true
			}
		}
	case toClark(davNamespace, "getcontentlength"):
		if f, ok := node.(File); ok {
			if sz, err := f.Size(ctx); err == nil {
				return IntValue(sz), true
			}
		}
	case toClark(davNamespace, "resourcetype"):
		if _, ok := node.(Collection); ok {
			return ResourceTypeValue{toClark(davNamespace, "collection")}, true
		}
		return ResourceTypeValue{}, true
	case toClark(davNamespace, "quota-used-bytes"):
		if q, ok := node.(Quota); ok {
			if used, _, err := q.QuotaInfo(ctx); err == nil && used >= 0 {
				return IntValue(used), true
			}
		}
	case toClark(davNamespace, "quota-available-bytes"):
		if q, ok := node.(Quota); ok {
			if _, avail, err := q.QuotaInfo(ctx); err == nil && avail >= 0 {
				return IntValue(avail), true
			}
		}
	case toClark(davNamespace, "getetag"):
		if f, ok := node.(File); ok {
			if et, err := f.ETag(ctx); err == nil && et != "" {
				return StringValue(et), true
			}
		}
	case toClark(davNamespace, "getcontenttype"):
		if f, ok := node.(File); ok {
			if ct, err := f.ContentType(ctx); err == nil && ct != "" {
				return StringValue(ct), true
			}
		}
	case toClark(davNamespace, "supported-report-set"):
		return SupportedReportSetValue{}, true
	}
	return nil, false
}

// removeProp strips every entry named name from every propstat bucket,
// used to discard a resourcetype entry that was only added internally to
// compute the href's trailing slash.
func removeProp(resp *MultiStatusResponse, name clarkName) {
	for _, ps := range resp.PropStats {
		kept := ps.Props[:0]
		for _, p := range ps.Props {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		ps.Props = kept
	}
}
