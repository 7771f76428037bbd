package webdav

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePreconditions(t *testing.T) {
	t.Run("IfMatchMissingResourceFails", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/f", nil)
		r.Header.Set("If-Match", `"etag"`)
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, false, preconditionInput{Exists: false})
		assert.False(t, redirected)
		require.NotNil(t, err)
		assert.Equal(t, KindPreconditionFailed, err.Kind)
	})

	t.Run("IfMatchWildcardAlwaysMatchesExistingResource", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/f", nil)
		r.Header.Set("If-Match", "*")
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, false, preconditionInput{Exists: true})
		assert.False(t, redirected)
		assert.Nil(t, err)
	})

	t.Run("IfNoneMatchOnGETYields304", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/f", nil)
		r.Header.Set("If-None-Match", `"v1"`)
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, true, preconditionInput{
			Exists: true, ETag: `"v1"`, HasETag: true,
		})
		assert.True(t, redirected)
		assert.Nil(t, err)
		assert.Equal(t, http.StatusNotModified, w.Code)
	})

	t.Run("IfNoneMatchOnPUTYields412", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/f", nil)
		r.Header.Set("If-None-Match", `"v1"`)
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, false, preconditionInput{
			Exists: true, ETag: `"v1"`, HasETag: true,
		})
		assert.False(t, redirected)
		require.NotNil(t, err)
		assert.Equal(t, KindPreconditionFailed, err.Kind)
	})

	t.Run("IfModifiedSinceIgnoredWhenIfNoneMatchPresent", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		r := httptest.NewRequest(http.MethodGet, "/f", nil)
		r.Header.Set("If-None-Match", `"other"`)
		r.Header.Set("If-Modified-Since", past.Format(http.TimeFormat))
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, true, preconditionInput{
			Exists: true, ETag: `"v1"`, HasETag: true,
			LastModified: time.Now(), HasLastMod: true,
		})
		assert.False(t, redirected)
		assert.Nil(t, err)
	})

	t.Run("IfUnmodifiedSinceFailsWhenModifiedAfter", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		r := httptest.NewRequest(http.MethodPut, "/f", nil)
		r.Header.Set("If-Unmodified-Since", past.Format(http.TimeFormat))
		w := httptest.NewRecorder()

		redirected, err := evaluatePreconditions(w, r, false, preconditionInput{
			Exists: true, LastModified: time.Now(), HasLastMod: true,
		})
		assert.False(t, redirected)
		require.NotNil(t, err)
		assert.Equal(t, KindPreconditionFailed, err.Kind)
	})
}
