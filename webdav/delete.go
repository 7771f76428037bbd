package webdav

import (
	"context"
	"net/http"
)

// handleDelete implements DELETE.
func (s *Server) handleDelete(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	node, err := s.Tree.GetNodeForPath(ctx, path)
	if err != nil {
		return AsError(err)
	}

	if vetoed := s.Events.Emit(EventBeforeUnbind, path); vetoed {
		return nil
	}

	if derr := node.Delete(ctx); derr != nil {
		return AsError(derr)
	}

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusNoContent)
	return nil
}
