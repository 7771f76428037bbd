package webdav

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// byteRange is a parsed, already-resolved (against a known size) HTTP
// byte range.
type byteRange struct {
	Start, End int64 // inclusive, 0-based
}

// parseRange implements Range parsing rule: "bytes=s-e" with
// both sides optional. Returns ok=false (not an error) when the header is
// absent, empty on both sides, or doesn't start with "bytes=" — the
// caller should just fall back to a full 200 response in that case.
func parseRange(header string, size int64) (br byteRange, ok bool, rerr *Error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, false, nil
	}
	spec := strings.TrimPrefix(header, prefix)
	// Multiple ranges are not supported by the core; take the first.
	spec = strings.SplitN(spec, ",", 2)[0]

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, false, nil
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" && endStr == "" {
		return byteRange{}, false, nil
	}

	var start, end int64
	switch {
	case startStr == "":
		// "-n" means the last n bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return byteRange{}, false, nil
		}
		start = size - n
		if start < 0 {
			start = 0
		}
		end = size - 1
	case endStr == "":
		// "s-" means s through end.
		s, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return byteRange{}, false, nil
		}
		start = s
		end = size - 1
	default:
		s, err1 := strconv.ParseInt(startStr, 10, 64)
		e, err2 := strconv.ParseInt(endStr, 10, 64)
		if err1 != nil || err2 != nil {
			return byteRange{}, false, nil
		}
		start, end = s, e
	}

	if start > size || end < start {
		return byteRange{}, false, NewError(KindRequestedRangeNotSatisfiable, "range outside resource bounds")
	}
	if end > size-1 {
		end = size - 1
	}

	return byteRange{Start: start, End: end}, true, nil
}

// handleGet implements GET.
func (s *Server) handleGet(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	return s.getOrHead(ctx, w, r, true)
}

// handleHead implements HEAD, including the deliberate
// divergence that non-file nodes answer 200 with no body/headers rather
// than 405.
func (s *Server) handleHead(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	return s.getOrHead(ctx, w, r, false)
}

func (s *Server) getOrHead(ctx context.Context, w http.ResponseWriter, r *http.Request, withBody bool) *Error {
	path, perr := s.resolvePath(r)
	if perr != nil {
		return perr
	}

	node, err := s.Tree.GetNodeForPath(ctx, path)
	exists := err == nil

	var f File
	if exists {
		if file, ok := node.(File); ok {
			f = file
		}
	}

	var fi fileInfo
	if f != nil {
		fi = gatherFileInfo(ctx, f)
	}

	redirected, perr := evaluatePreconditions(w, r, true, preconditionInput{
		Exists:       exists,
		ETag:         fi.ETag,
		HasETag:      fi.HasETag,
		LastModified: fi.LastModified,
		HasLastMod:   fi.HasLastMod,
	})
	if redirected {
		return nil
	}
	if perr != nil {
		return perr
	}

	if !exists {
		return AsError(err)
	}

	if f == nil {
		if !withBody {
			// HEAD on a non-file: 200, empty headers.
			w.WriteHeader(http.StatusOK)
			return nil
		}
		return NewErrorf(KindNotImplemented, "%s is not a file", path)
	}

	writeHTTPHeaders(w, fi)

	data, gerr := f.Get(ctx)
	if gerr != nil {
		return AsError(gerr)
	}

	if !withBody {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	size := fi.Size
	if !fi.HasSize {
		size = int64(len(data))
	}

	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" && fi.HasSize {
		if ifRangeOK := checkIfRange(r, fi); ifRangeOK {
			br, ok, rerr := parseRange(rangeHeader, size)
			if rerr != nil {
				return rerr
			}
			if ok {
				w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size))
				w.Header().Set("Content-Length", strconv.FormatInt(br.End-br.Start+1, 10))
				w.WriteHeader(http.StatusPartialContent)
				w.Write(data[br.Start : br.End+1])
				return nil
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return nil
}

// checkIfRange reports whether a Range header should be honored: absent
// If-Range always passes; present If-Range must match the current ETag
// or Last-Modified.
func checkIfRange(r *http.Request, fi fileInfo) bool {
	ir := r.Header.Get("If-Range")
	if ir == "" {
		return true
	}
	if fi.HasETag && unquoteETag(ir) == unquoteETag(fi.ETag) {
		return true
	}
	if t, err := http.ParseTime(ir); err == nil && fi.HasLastMod {
		return !fi.LastModified.After(t)
	}
	return false
}
