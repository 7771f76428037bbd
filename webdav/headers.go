package webdav

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// fileInfo gathers the handful of File properties the core needs
// repeatedly (headers, preconditions, range handling) in one round trip
// per call site, tolerating a backend that implements only some of them.
type fileInfo struct {
	Size         int64
	HasSize      bool
	ETag         string
	HasETag      bool
	ContentType  string
	HasCT        bool
	LastModified time.Time
	HasLastMod   bool
}

func gatherFileInfo(ctx context.Context, f File) fileInfo {
	var fi fileInfo
	if sz, err := f.Size(ctx); err == nil {
		fi.Size, fi.HasSize = sz, true
	}
	if et, err := f.ETag(ctx); err == nil && et != "" {
		fi.ETag, fi.HasETag = et, true
	}
	if ct, err := f.ContentType(ctx); err == nil && ct != "" {
		fi.ContentType, fi.HasCT = ct, true
	}
	if lm, err := f.LastModified(ctx); err == nil && !lm.IsZero() {
		fi.LastModified, fi.HasLastMod = lm, true
	}
	return fi
}

// writeHTTPHeaders maps the gathered file info onto the response headers
// Content-Type, Content-Length, Last-Modified and ETag. A missing
// Content-Type is sent as application/octet-stream; the other missing
// properties are simply omitted.
func writeHTTPHeaders(w http.ResponseWriter, fi fileInfo) {
	if fi.HasCT {
		w.Header().Set("Content-Type", fi.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if fi.HasSize {
		w.Header().Set("Content-Length", strconv.FormatInt(fi.Size, 10))
	}
	if fi.HasLastMod {
		w.Header().Set("Last-Modified", fi.LastModified.UTC().Format(http.TimeFormat))
	}
	if fi.HasETag {
		w.Header().Set("ETag", fi.ETag)
	}
}
