package webdav

import (
	"context"
	"net/http"
)

// handleReport implements REPORT: the core has no built-in
// reports, so every report name is delegated to plugin subscribers of
// EventReport via the request body's root element name.
func (s *Server) handleReport(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}
	if _, err := s.Tree.GetNodeForPath(ctx, path); err != nil {
		return AsError(err)
	}

	root, xerr := parseXMLBody(r.Body)
	if xerr != nil {
		return NewErrorf(KindBadRequest, "cannot parse REPORT body: %v", xerr)
	}

	if !s.Events.HasSubscribers(EventReport) {
		return NewErrorf(KindReportNotImplemented, "report %q is not supported", root.Name)
	}

	if vetoed := s.Events.Emit(EventReport, path, root, w); vetoed {
		return nil
	}

	return NewErrorf(KindReportNotImplemented, "report %q is not supported", root.Name)
}
