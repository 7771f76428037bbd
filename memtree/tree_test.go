package memtree_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcooley/jsDAV/memtree"
	"github.com/mcooley/jsDAV/webdav"
)

func TestFileCreateGetPut(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)

	root, err := tree.GetNodeForPath(ctx, "")
	require.NoError(t, err)
	coll, ok := root.(webdav.Collection)
	require.True(t, ok)

	node, err := coll.CreateFile(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)
	f, ok := node.(webdav.File)
	require.True(t, ok)

	data, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, f.Put(ctx, []byte("goodbye")))
	data, err = f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "goodbye", string(data))

	size, err := f.Size(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, size)
}

func TestCreateFileRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	_, err := coll.CreateFile(ctx, "dup.txt", nil)
	require.NoError(t, err)
	_, err = coll.CreateFile(ctx, "dup.txt", nil)
	assert.Error(t, err)
}

func TestCollectionHasNoFileCapability(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	dir, err := coll.CreateDirectory(ctx, "sub")
	require.NoError(t, err)

	_, ok := dir.(webdav.File)
	assert.False(t, ok, "a collection node must not satisfy the File capability")
	assert.False(t, dir.HasCapability(webdav.CapFile))
	assert.True(t, dir.HasCapability(webdav.CapCollection))
}

func TestFileHasNoCollectionCapability(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	f, err := coll.CreateFile(ctx, "leaf.txt", []byte("x"))
	require.NoError(t, err)

	_, ok := f.(webdav.Collection)
	assert.False(t, ok, "a file node must not satisfy the Collection capability")
	assert.False(t, f.HasCapability(webdav.CapCollection))
	assert.True(t, f.HasCapability(webdav.CapFile))
}

func TestGetChildrenAndDelete(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	_, err := coll.CreateFile(ctx, "one.txt", []byte("1"))
	require.NoError(t, err)
	_, err = coll.CreateFile(ctx, "two.txt", []byte("2"))
	require.NoError(t, err)

	children, err := coll.GetChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	one, err := coll.GetChild(ctx, "one.txt")
	require.NoError(t, err)
	require.NoError(t, one.Delete(ctx))

	children, err = coll.GetChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	_, err = coll.GetChild(ctx, "one.txt")
	assert.Error(t, err)
}

func TestPropertiesSetAndSelect(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	node, err := coll.CreateFile(ctx, "p.txt", []byte("x"))
	require.NoError(t, err)
	props, ok := node.(webdav.Properties)
	require.True(t, ok)

	_, err = props.UpdateProperties(ctx, []webdav.PropertyMutation{
		{Name: "{DAV:}displayname", Value: webdav.StringValue("Hello")},
		{Name: "{custom:}color", Value: webdav.StringValue("blue")},
	})
	require.NoError(t, err)

	all, err := props.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	subset, err := props.GetProperties(ctx, []string{"{DAV:}displayname"})
	require.NoError(t, err)
	assert.Len(t, subset, 1)
	assert.Equal(t, webdav.StringValue("Hello"), subset["{DAV:}displayname"])

	_, err = props.UpdateProperties(ctx, []webdav.PropertyMutation{
		{Name: "{custom:}color", Remove: true},
	})
	require.NoError(t, err)
	all, err = props.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQuotaInfoTracksDescendantSize(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(1000)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	_, err := coll.CreateFile(ctx, "a.txt", []byte("12345"))
	require.NoError(t, err)
	sub, err := coll.CreateDirectory(ctx, "sub")
	require.NoError(t, err)
	subColl := sub.(webdav.Collection)
	_, err = subColl.CreateFile(ctx, "b.txt", []byte("123"))
	require.NoError(t, err)

	q, ok := root.(webdav.Quota)
	require.True(t, ok)
	used, available, err := q.QuotaInfo(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 8, used)
	assert.EqualValues(t, 1000, available)
}

func TestQuotaDisabledByNegativeAvailable(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	assert.False(t, root.HasCapability(webdav.CapQuota))
}

func TestCreateExtendedCollectionSetsResourceTypeAndProperties(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	ext, ok := root.(webdav.ExtendedCollection)
	require.True(t, ok)

	node, err := ext.CreateExtendedCollection(ctx, "cal", []string{"{DAV:}collection", "{urn:ietf:params:xml:ns:caldav}calendar"},
		[]webdav.PropertyMutation{{Name: "{DAV:}displayname", Value: webdav.StringValue("My Calendar")}})
	require.NoError(t, err)

	props := node.(webdav.Properties)
	all, err := props.GetProperties(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, all, "{DAV:}resourcetype")
	assert.Contains(t, all, "{DAV:}displayname")

	rt := all["{DAV:}resourcetype"].(webdav.ResourceTypeValue)
	assert.True(t, rt.IsCollection())
	assert.Len(t, rt, 2)
}

func TestCopyDeepClonesSubtree(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	sub, err := coll.CreateDirectory(ctx, "sub")
	require.NoError(t, err)
	subColl := sub.(webdav.Collection)
	_, err = subColl.CreateFile(ctx, "leaf.txt", []byte("orig"))
	require.NoError(t, err)

	require.NoError(t, tree.Copy(ctx, "sub", "copy"))

	copied, err := tree.GetNodeForPath(ctx, "copy/leaf.txt")
	require.NoError(t, err)
	cf := copied.(webdav.File)
	data, err := cf.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(data))

	// Mutating the copy must not affect the original (deep clone, not alias).
	require.NoError(t, cf.Put(ctx, []byte("changed")))
	orig, err := tree.GetNodeForPath(ctx, "sub/leaf.txt")
	require.NoError(t, err)
	origData, err := orig.(webdav.File).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "orig", string(origData))
}

func TestMoveRemovesSource(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)

	_, err := coll.CreateFile(ctx, "from.txt", []byte("data"))
	require.NoError(t, err)

	require.NoError(t, tree.Move(ctx, "from.txt", "to.txt"))

	_, err = tree.GetNodeForPath(ctx, "from.txt")
	assert.Error(t, err)

	moved, err := tree.GetNodeForPath(ctx, "to.txt")
	require.NoError(t, err)
	data, err := moved.(webdav.File).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestCopyFailsWhenDestinationParentMissing(t *testing.T) {
	ctx := context.Background()
	tree := memtree.NewTree(-1)
	root, _ := tree.GetNodeForPath(ctx, "")
	coll := root.(webdav.Collection)
	_, err := coll.CreateFile(ctx, "x.txt", []byte("x"))
	require.NoError(t, err)

	err = tree.Copy(ctx, "x.txt", "nosuchdir/x.txt")
	assert.Error(t, err)
}
