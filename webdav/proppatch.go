package webdav

import (
	"context"
	"net/http"
)

// handleProppatch implements PROPPATCH.
func (s *Server) handleProppatch(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	node, err := s.Tree.GetNodeForPath(ctx, path)
	if err != nil {
		return AsError(err)
	}

	root, xerr := parseXMLBody(r.Body)
	if xerr != nil {
		return NewErrorf(KindBadRequest, "cannot parse PROPPATCH body: %v", xerr)
	}
	if root.Name != toClark(davNamespace, "propertyupdate") {
		return NewError(KindBadRequest, "PROPPATCH body must be rooted at {DAV:}propertyupdate")
	}

	ops := parsePropertyUpdateOps(root, s.Registry)

	href := hrefFor(s.BaseURI, path, isCollectionNode(node))
	resp := s.applyPropertyUpdate(ctx, href, node, ops)

	body := RenderMultiStatus([]*MultiStatusResponse{resp})
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write(body)
	return nil
}

// parsePropertyUpdateOps walks a {DAV:}propertyupdate body's {DAV:}set and
// {DAV:}remove children, in document order, producing the ordered
// mutation list PROPPATCH requires.
func parsePropertyUpdateOps(root *xmlElement, registry *PropertyRegistry) []PropertyMutation {
	var ops []PropertyMutation
	for _, child := range root.Children {
		switch child.Name {
		case toClark(davNamespace, "set"):
			propEl, ok := child.firstChild(toClark(davNamespace, "prop"))
			if !ok {
				continue
			}
			for _, p := range propEl.Children {
				name, value := registry.Parse(p)
				ops = append(ops, PropertyMutation{Name: string(name), Value: value})
			}
		case toClark(davNamespace, "remove"):
			propEl, ok := child.firstChild(toClark(davNamespace, "prop"))
			if !ok {
				continue
			}
			for _, p := range propEl.Children {
				ops = append(ops, PropertyMutation{Name: string(p.Name), Remove: true})
			}
		}
	}
	return ops
}

// applyPropertyUpdate implements updateProperties, returning a
// response whose propstat buckets can be both rendered as PROPPATCH's 207
// body and inspected by createCollection's rollback check.
func (s *Server) applyPropertyUpdate(ctx context.Context, href string, node Node, ops []PropertyMutation) *MultiStatusResponse {
	resp := NewResponse(href)
	if len(ops) == 0 {
		return resp
	}

	props, isProps := node.(Properties)
	if !isProps {
		for _, op := range ops {
			resp.AddProp(http.StatusForbidden, clarkName(op.Name), nil)
		}
		return resp
	}

	var protected, candidates []PropertyMutation
	for _, op := range ops {
		if isProtected(op.Name) {
			protected = append(protected, op)
		} else {
			candidates = append(candidates, op)
		}
	}

	if len(protected) > 0 {
		for _, op := range protected {
			resp.AddProp(http.StatusForbidden, clarkName(op.Name), nil)
		}
		// Dependent properties not attempted due to the earlier failure
		// report 424.
		for _, op := range candidates {
			resp.AddProp(http.StatusFailedDependency, clarkName(op.Name), nil)
		}
		return resp
	}

	result, uerr := props.UpdateProperties(ctx, candidates)
	if uerr != nil {
		for _, op := range candidates {
			resp.AddProp(http.StatusInternalServerError, clarkName(op.Name), nil)
		}
		return resp
	}

	attempted := map[string]bool{}
	switch {
	case result.Statuses != nil:
		for status, names := range result.Statuses {
			for _, n := range names {
				resp.AddProp(status, clarkName(n), nil)
				attempted[n] = true
			}
		}
	case result.AllOK:
		for _, op := range candidates {
			resp.AddProp(http.StatusOK, clarkName(op.Name), nil)
			attempted[op.Name] = true
		}
	default:
		for _, op := range candidates {
			resp.AddProp(http.StatusForbidden, clarkName(op.Name), nil)
			attempted[op.Name] = true
		}
	}
	for _, op := range candidates {
		if !attempted[op.Name] {
			resp.AddProp(http.StatusFailedDependency, clarkName(op.Name), nil)
		}
	}
	return resp
}

// outcomeFailed reports whether resp contains any property whose status
// is not 200, used by createCollection's rollback decision.
func outcomeFailed(resp *MultiStatusResponse) bool {
	for _, ps := range resp.PropStats {
		if ps.Status != http.StatusOK && len(ps.Props) > 0 {
			return true
		}
	}
	return false
}

func isCollectionNode(n Node) bool {
	_, ok := n.(Collection)
	return ok
}
