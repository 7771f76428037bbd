package webdav

import (
	"context"
	"net/http"
	"net/url"
)

// copyMoveInfo is the result of getCopyAndMoveInfo.
type copyMoveInfo struct {
	Source            string
	Destination       string
	DestinationExists bool
	DestinationNode   Node
}

// getCopyAndMoveInfo reads the Destination/Overwrite headers and resolves
// the destination parent and any existing destination node.
func (s *Server) getCopyAndMoveInfo(ctx context.Context, r *http.Request, source string) (copyMoveInfo, *Error) {
	destHeader := r.Header.Get("Destination")
	if destHeader == "" {
		return copyMoveInfo{}, NewError(KindBadRequest, "Destination header is required")
	}

	overwriteHeader := r.Header.Get("Overwrite")
	overwrite := true
	switch overwriteHeader {
	case "", "T":
		overwrite = true
	case "F":
		overwrite = false
	default:
		return copyMoveInfo{}, NewErrorf(KindBadRequest, "invalid Overwrite header %q", overwriteHeader)
	}

	u, uerr := url.Parse(destHeader)
	if uerr != nil {
		return copyMoveInfo{}, NewErrorf(KindBadRequest, "cannot parse Destination header %q", destHeader)
	}

	dest, derr := calculateURI(u.Path, s.BaseURI)
	if derr != nil {
		return copyMoveInfo{}, derr
	}

	parentPath, _ := splitPath(dest)
	parentNode, perr := s.Tree.GetNodeForPath(ctx, parentPath)
	if perr != nil {
		return copyMoveInfo{}, NewErrorf(KindConflict, "destination parent %q does not exist", parentPath)
	}
	if _, ok := parentNode.(Collection); !ok {
		return copyMoveInfo{}, NewErrorf(KindUnsupportedMediaType, "destination parent %q is not a collection", parentPath)
	}

	destNode, nerr := s.Tree.GetNodeForPath(ctx, dest)
	exists := nerr == nil
	if exists && !overwrite {
		return copyMoveInfo{}, NewError(KindPreconditionFailed, "destination exists and Overwrite is F")
	}

	return copyMoveInfo{
		Source:            source,
		Destination:       dest,
		DestinationExists: exists,
		DestinationNode:   destNode,
	}, nil
}

// handleCopy implements COPY.
func (s *Server) handleCopy(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	return s.copyOrMove(ctx, w, r, false)
}

// handleMove implements MOVE.
func (s *Server) handleMove(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	return s.copyOrMove(ctx, w, r, true)
}

func (s *Server) copyOrMove(ctx context.Context, w http.ResponseWriter, r *http.Request, move bool) *Error {
	source, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}
	if _, nerr := s.Tree.GetNodeForPath(ctx, source); nerr != nil {
		return AsError(nerr)
	}

	info, ierr := s.getCopyAndMoveInfo(ctx, r, source)
	if ierr != nil {
		return ierr
	}

	overwritten := false
	if info.DestinationExists {
		if vetoed := s.Events.Emit(EventBeforeUnbind, info.Destination); vetoed {
			return nil
		}
		if derr := info.DestinationNode.Delete(ctx); derr != nil {
			return AsError(derr)
		}
		overwritten = true
	}

	if vetoed := s.Events.Emit(EventBeforeBind, info.Destination); vetoed {
		return nil
	}

	var opErr error
	if move {
		opErr = s.Tree.Move(ctx, info.Source, info.Destination)
	} else {
		opErr = s.Tree.Copy(ctx, info.Source, info.Destination)
	}
	if opErr != nil {
		return AsError(opErr)
	}

	s.Events.Emit(EventAfterBind, info.Destination)

	if overwritten {
		w.WriteHeader(http.StatusNoContent)
	} else {
		w.WriteHeader(http.StatusCreated)
	}
	return nil
}
