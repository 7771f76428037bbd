package webdav

import (
	"context"
)

// createFile splits parent/name, fires the beforeBind/beforeCreateFile
// events, creates the child, then fires afterBind. A veto returns a nil
// Node and a nil *Error.
func (s *Server) createFile(ctx context.Context, path string, data []byte) (Node, *Error) {
	parentPath, name := splitPath(path)

	if vetoed := s.Events.Emit(EventBeforeBind, path); vetoed {
		return nil, nil
	}
	if vetoed := s.Events.Emit(EventBeforeCreateFile, path, data); vetoed {
		return nil, nil
	}

	parentNode, err := s.Tree.GetNodeForPath(ctx, parentPath)
	if err != nil {
		return nil, NewErrorf(KindConflict, "parent collection %q does not exist", parentPath)
	}
	parent, ok := parentNode.(Collection)
	if !ok {
		return nil, NewErrorf(KindConflict, "%q is not a collection", parentPath)
	}

	node, cerr := parent.CreateFile(ctx, name, data)
	if cerr != nil {
		return nil, AsError(cerr)
	}

	s.Events.Emit(EventAfterBind, path)
	return node, nil
}

// createCollection creates a collection and sets its initial resource
// types and dead properties. A nil *MultiStatusResponse and nil *Error
// means a clean 201. A non-nil
// response (with nil error) means the collection was created, one or
// more dead properties failed, and the collection was then deleted
// again; the response carries the per-property statuses for MKCOL's 207. A non-nil error is a hard failure (bad
// parent, conflicting child, invalid resource type).
func (s *Server) createCollection(ctx context.Context, path string, resourceTypes []string, properties []PropertyMutation) (*MultiStatusResponse, *Error) {
	hasCollectionType := false
	for _, rt := range resourceTypes {
		if rt == string(toClark(davNamespace, "collection")) {
			hasCollectionType = true
		}
	}
	if !hasCollectionType {
		return nil, NewError(KindInvalidResourceType, "resourcetype must include {DAV:}collection").WithStatus(409)
	}

	parentPath, name := splitPath(path)

	parentNode, err := s.Tree.GetNodeForPath(ctx, parentPath)
	if err != nil {
		return nil, NewErrorf(KindConflict, "parent collection %q does not exist", parentPath)
	}
	parent, ok := parentNode.(Collection)
	if !ok {
		return nil, NewErrorf(KindConflict, "%q is not a collection", parentPath)
	}

	if _, err := parent.GetChild(ctx, name); err == nil {
		return nil, NewErrorf(KindMethodNotAllowed, "%q already exists", path)
	}

	if vetoed := s.Events.Emit(EventBeforeBind, path); vetoed {
		return nil, nil
	}

	if ext, ok := parent.(ExtendedCollection); ok {
		if _, cerr := ext.CreateExtendedCollection(ctx, name, resourceTypes, properties); cerr != nil {
			return nil, AsError(cerr)
		}
		s.Events.Emit(EventAfterBind, path)
		return nil, nil
	}

	for _, rt := range resourceTypes {
		if rt != string(toClark(davNamespace, "collection")) {
			return nil, NewError(KindInvalidResourceType, "non-collection resource types are not supported without an extended collection backend").WithStatus(409)
		}
	}

	node, cerr := parent.CreateDirectory(ctx, name)
	if cerr != nil {
		return nil, AsError(cerr)
	}

	if len(properties) > 0 {
		href := hrefFor(s.BaseURI, path, true)
		resp := s.applyPropertyUpdate(ctx, href, node, properties)
		if outcomeFailed(resp) {
			// Roll back: the collection must not survive a failed
			// property batch, but still report per-property
			// statuses so the client knows why.
			s.Events.Emit(EventBeforeUnbind, path)
			node.Delete(ctx)
			return resp, nil
		}
	}

	s.Events.Emit(EventAfterBind, path)
	return nil, nil
}
