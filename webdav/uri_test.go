package webdav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateURI(t *testing.T) {
	t.Run("StripsBasePrefix", func(t *testing.T) {
		path, err := calculateURI("/dav/foo/bar", "/dav/")
		require.Nil(t, err)
		assert.Equal(t, "foo/bar", path)
	})

	t.Run("CollapsesDuplicateSlashes", func(t *testing.T) {
		path, err := calculateURI("/dav//foo///bar", "/dav/")
		require.Nil(t, err)
		assert.Equal(t, "foo/bar", path)
	})

	t.Run("PercentDecodes", func(t *testing.T) {
		path, err := calculateURI("/dav/a%20b", "/dav/")
		require.Nil(t, err)
		assert.Equal(t, "a b", path)
	})

	t.Run("BareBaseURIMapsToEmptyPath", func(t *testing.T) {
		path, err := calculateURI("/dav", "/dav/")
		require.Nil(t, err)
		assert.Equal(t, "", path)
	})

	t.Run("OutsideBaseIsForbidden", func(t *testing.T) {
		_, err := calculateURI("/other/foo", "/dav/")
		require.NotNil(t, err)
		assert.Equal(t, KindForbidden, err.Kind)
	})
}

func TestHrefFor(t *testing.T) {
	t.Run("CollectionGetsTrailingSlash", func(t *testing.T) {
		assert.Equal(t, "/dav/foo/", hrefFor("/dav/", "foo", true))
	})

	t.Run("FileHasNoTrailingSlash", func(t *testing.T) {
		assert.Equal(t, "/dav/foo", hrefFor("/dav/", "foo", false))
	})

	t.Run("EscapesSegments", func(t *testing.T) {
		assert.Equal(t, "/dav/a%20b", hrefFor("/dav/", "a b", false))
	})
}

func TestClarkNameRoundTrip(t *testing.T) {
	name := toClark("DAV:", "getetag")
	ns, local := splitClark(name)
	assert.Equal(t, "DAV:", ns)
	assert.Equal(t, "getetag", local)
}
