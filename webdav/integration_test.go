package webdav_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcooley/jsDAV/memtree"
	"github.com/mcooley/jsDAV/webdav"
)

func newTestServer() *webdav.Server {
	tree := memtree.NewTree(1 << 30)
	return webdav.NewServer(tree, "/dav/")
}

func do(t *testing.T, srv *webdav.Server, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func TestPutThenGet(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, http.MethodPut, "/dav/hello.txt", "hello world", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, srv, http.MethodGet, "/dav/hello.txt", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("ETag"))

	// A second PUT updates in place, not a new resource.
	w = do(t, srv, http.MethodPut, "/dav/hello.txt", "updated", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/dav/hello.txt", "", nil)
	assert.Equal(t, "updated", w.Body.String())
}

func TestRangeGet(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPut, "/dav/data.txt", "0123456789", nil)

	w := do(t, srv, http.MethodGet, "/dav/data.txt", "", map[string]string{"Range": "bytes=2-4"})
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "234", w.Body.String())
	assert.Equal(t, "bytes 2-4/10", w.Header().Get("Content-Range"))
}

func TestPropfindDepthZero(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPut, "/dav/a.txt", "hi", nil)

	body := `<?xml version="1.0"?><propfind xmlns="DAV:"><prop><getcontentlength/></prop></propfind>`
	w := do(t, srv, "PROPFIND", "/dav/a.txt", body, map[string]string{"Depth": "0", "Content-Type": "application/xml"})

	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "<d:response>"))
	assert.Contains(t, w.Body.String(), "<d:getcontentlength>2</d:getcontentlength>")
}

func TestMkcolThenPropfindDepthOne(t *testing.T) {
	srv := newTestServer()

	w := do(t, srv, "MKCOL", "/dav/sub", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	do(t, srv, http.MethodPut, "/dav/sub/child.txt", "data", nil)

	w = do(t, srv, "PROPFIND", "/dav/sub", "", map[string]string{"Depth": "1"})
	require.Equal(t, http.StatusMultiStatus, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), "<d:response>"))
	assert.Contains(t, w.Body.String(), "<d:href>/dav/sub/</d:href>")
	assert.Contains(t, w.Body.String(), "<d:href>/dav/sub/child.txt</d:href>")
}

func TestMoveWithOverwriteFFailsPrecondition(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPut, "/dav/src.txt", "one", nil)
	do(t, srv, http.MethodPut, "/dav/dst.txt", "two", nil)

	w := do(t, srv, "MOVE", "/dav/src.txt", "", map[string]string{
		"Destination": "http://example.com/dav/dst.txt",
		"Overwrite":   "F",
	})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	// The source must survive an aborted move.
	w = do(t, srv, http.MethodGet, "/dav/src.txt", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProppatchRejectsProtectedPropertyAtomically(t *testing.T) {
	srv := newTestServer()
	do(t, srv, http.MethodPut, "/dav/f.txt", "x", nil)

	body := `<?xml version="1.0"?>
<propertyupdate xmlns="DAV:">
  <set><prop><displayname>new name</displayname><getetag>bogus</getetag></prop></set>
</propertyupdate>`
	w := do(t, srv, "PROPPATCH", "/dav/f.txt", body, nil)
	require.Equal(t, http.StatusMultiStatus, w.Code)

	out := w.Body.String()
	assert.Contains(t, out, "403 Forbidden")
	assert.Contains(t, out, "424 Failed Dependency")

	// displayname must not have been applied: re-running PROPFIND for it
	// should report it unset (404), since the whole batch was rejected.
	w = do(t, srv, "PROPFIND", "/dav/f.txt", `<?xml version="1.0"?><propfind xmlns="DAV:"><prop><displayname/></prop></propfind>`, map[string]string{"Depth": "0"})
	assert.Contains(t, w.Body.String(), "404 Not Found")
}
