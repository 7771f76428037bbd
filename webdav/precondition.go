package webdav

import (
	"net/http"
	"strings"
	"time"
)

// preconditionInput is what the evaluator needs to know about the
// resolved (or missing) target resource. ETag/LastModified are left
// unset (zero value, ok=false) when the backend has none to offer. A
// missing ETag never matches a non-"*" entity tag (so If-Match fails);
// a missing LastModified makes the date preconditions pass.
type preconditionInput struct {
	Exists       bool
	ETag         string
	HasETag      bool
	LastModified time.Time
	HasLastMod   bool
}

// evaluatePreconditions runs If-Match/If-None-Match/If-Modified-Since/
// If-Unmodified-Since in that order, the first failure short-circuiting
// the rest. On a conditional-GET short-circuit it writes the 304 status
// itself and
// returns redirected=true; the caller must stop processing without
// writing anything else. On any other failure it returns a non-nil
// *Error for the dispatcher's normal error path. A nil error and
// redirected=false means every applicable precondition passed.
func evaluatePreconditions(w http.ResponseWriter, r *http.Request, handleAsGET bool, in preconditionInput) (redirected bool, err *Error) {
	ifMatch := r.Header.Get("If-Match")
	ifNoneMatch := r.Header.Get("If-None-Match")

	if ifMatch != "" {
		if !in.Exists {
			return false, NewError(KindPreconditionFailed, "If-Match on a missing resource")
		}
		if !matchesAny(ifMatch, in.ETag, in.HasETag) {
			return false, NewError(KindPreconditionFailed, "If-Match did not match the current entity tag")
		}
	}

	noneMatchFailed := false
	if ifNoneMatch != "" {
		if in.Exists {
			if matchesAny(ifNoneMatch, in.ETag, in.HasETag) {
				noneMatchFailed = true
			}
		}
	}
	if noneMatchFailed {
		if handleAsGET {
			w.WriteHeader(http.StatusNotModified)
			return true, nil
		}
		return false, NewError(KindPreconditionFailed, "If-None-Match matched the current entity tag")
	}

	// If-Modified-Since is only consulted when the request carried no
	// If-None-Match and only meaningful for GET/HEAD.
	if ifNoneMatch == "" && handleAsGET {
		if ims := r.Header.Get("If-Modified-Since"); ims != "" && in.Exists && in.HasLastMod {
			if t, perr := http.ParseTime(ims); perr == nil {
				if !in.LastModified.After(t) {
					w.WriteHeader(http.StatusNotModified)
					return true, nil
				}
			}
		}
	}

	if ius := r.Header.Get("If-Unmodified-Since"); ius != "" {
		if !in.Exists {
			return false, NewError(KindPreconditionFailed, "If-Unmodified-Since on a missing resource")
		}
		if t, perr := http.ParseTime(ius); perr == nil && in.HasLastMod {
			if in.LastModified.After(t) {
				return false, NewError(KindPreconditionFailed, "resource modified since If-Unmodified-Since")
			}
		}
	}

	return false, nil
}

// matchesAny reports whether header (an If-Match/If-None-Match value,
// comma-separated, possibly "*") matches currentETag. Quotes and the
// weak-comparison "W/" prefix are stripped before comparing ("strip
// quotes; require equality").
func matchesAny(header, currentETag string, hasETag bool) bool {
	for _, raw := range strings.Split(header, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "*" {
			return true
		}
		if !hasETag {
			continue
		}
		if unquoteETag(tag) == unquoteETag(currentETag) {
			return true
		}
	}
	return false
}

func unquoteETag(s string) string {
	s = strings.TrimPrefix(s, "W/")
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"`)
}
