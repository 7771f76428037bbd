package basicauth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcooley/jsDAV/basicauth"
	"github.com/mcooley/jsDAV/memtree"
	"github.com/mcooley/jsDAV/webdav"
)

func newGuardedServer() *webdav.Server {
	srv := webdav.NewServer(memtree.NewTree(-1), "/dav/")
	srv.Use(basicauth.New("jsDAV", "alice", "secret"))
	return srv
}

func TestMissingCredentialsAreRejected(t *testing.T) {
	srv := newGuardedServer()
	r := httptest.NewRequest(http.MethodGet, "/dav/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), `realm="jsDAV"`)
}

func TestWrongPasswordIsRejected(t *testing.T) {
	srv := newGuardedServer()
	r := httptest.NewRequest(http.MethodGet, "/dav/", nil)
	r.SetBasicAuth("alice", "wrong")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCorrectCredentialsPassThrough(t *testing.T) {
	srv := newGuardedServer()
	r := httptest.NewRequest(http.MethodPut, "/dav/a.txt", strings.NewReader("hi"))
	r.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)

	require.NotEqual(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, http.StatusCreated, w.Code)
}
