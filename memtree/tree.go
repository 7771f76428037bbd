package memtree

import (
	"context"
	"strings"
	"sync"

	"github.com/mcooley/jsDAV/webdav"
)

// Tree is the reference webdav.Tree implementation: an in-memory
// collection hierarchy rooted at a single collection node. Copy and the
// copy and delete steps of Move each run under treeMu; node-level creates
// and deletes take only the parent collection's lock. Move releases
// treeMu between its copy and its delete, so a concurrent request can
// see both the source and the destination in between.
type Tree struct {
	treeMu sync.Mutex
	root   *collectionNode
}

var _ webdav.Tree = (*Tree)(nil)

// NewTree returns an empty tree. quotaAvailable is reported as the root
// collection's {DAV:}quota-available-bytes; pass a negative value to
// disable quota reporting entirely.
func NewTree(quotaAvailable int64) *Tree {
	root := newCollectionNode(nil, "")
	if quotaAvailable >= 0 {
		root.hasQuota = true
		root.quotaAvailable = quotaAvailable
	}
	return &Tree{root: root}
}

func (t *Tree) GetNodeForPath(_ context.Context, path string) (webdav.Node, error) {
	return t.resolve(path)
}

func (t *Tree) resolve(path string) (webdav.Node, error) {
	path = strings.Trim(path, "/")
	var cur webdav.Node = t.root
	if path == "" {
		return cur, nil
	}
	for _, seg := range strings.Split(path, "/") {
		coll, ok := cur.(webdav.Collection)
		if !ok {
			return nil, webdav.NewErrorf(webdav.KindNotFound, "%q is not a collection", cur.Name())
		}
		child, err := coll.GetChild(context.Background(), seg)
		if err != nil {
			return nil, err
		}
		cur = child
	}
	return cur, nil
}

// Copy implements webdav.Tree.Copy by deep-copying the subtree rooted at
// src into a freshly created node at dst.
func (t *Tree) Copy(ctx context.Context, src, dst string) error {
	t.treeMu.Lock()
	defer t.treeMu.Unlock()

	srcNode, err := t.resolve(src)
	if err != nil {
		return err
	}

	dstParentPath, dstName := splitLast(dst)
	dstParentNode, err := t.resolve(dstParentPath)
	if err != nil {
		return webdav.NewErrorf(webdav.KindConflict, "destination parent %q does not exist", dstParentPath)
	}
	dstParent, ok := dstParentNode.(*collectionNode)
	if !ok {
		return webdav.NewErrorf(webdav.KindUnsupportedMediaType, "destination parent %q is not a collection", dstParentPath)
	}

	copied := cloneNode(dstParent, dstName, srcNode)
	dstParent.mu.Lock()
	dstParent.children = append(dstParent.children, copied)
	dstParent.mu.Unlock()
	return nil
}

// Move implements webdav.Tree.Move as a copy followed by removing the
// source node from its old parent, the way a backend without a native
// rename primitive would do it.
func (t *Tree) Move(ctx context.Context, src, dst string) error {
	if err := t.Copy(ctx, src, dst); err != nil {
		return err
	}

	t.treeMu.Lock()
	defer t.treeMu.Unlock()
	srcNode, err := t.resolve(src)
	if err != nil {
		return err
	}
	return srcNode.Delete(ctx)
}

func splitLast(path string) (parent, name string) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

func cloneNode(parent *collectionNode, name string, src webdav.Node) webdav.Node {
	switch s := src.(type) {
	case *fileNode:
		s.mu.RLock()
		defer s.mu.RUnlock()
		n := newFileNode(parent, name, append([]byte(nil), s.data...))
		n.contentType = s.contentType
		n.modTime = s.modTime
		for k, v := range s.properties {
			n.properties[k] = v
		}
		return n
	case *collectionNode:
		s.mu.RLock()
		children := append([]webdav.Node(nil), s.children...)
		props := s.properties
		s.mu.RUnlock()

		n := newCollectionNode(parent, name)
		for k, v := range props {
			n.properties[k] = v
		}
		for _, c := range children {
			n.children = append(n.children, cloneNode(n, c.Name(), c))
		}
		return n
	}
	return nil
}
