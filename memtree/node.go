// Package memtree is the reference in-memory backend: a tree of nodes kept
// entirely in RAM, shaped after a filesystem-style (fileSystem, fileInfo,
// openWritableFile) abstraction but backed by plain Go structs instead of a
// remote API client. A file and a collection are distinct Go types here
// (fileNode, collectionNode) rather than one struct with an isDir flag,
// so the core's node.(File)/node.(Collection) type assertions see exactly
// the capabilities each resource actually has.
package memtree

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mcooley/jsDAV/webdav"
)

type fileNode struct {
	mu sync.RWMutex

	name   string
	parent *collectionNode

	data        []byte
	contentType string
	modTime     time.Time
	version     int64

	properties map[string]webdav.PropertyValue
}

type collectionNode struct {
	mu sync.RWMutex

	name   string
	parent *collectionNode

	children []webdav.Node
	modTime  time.Time

	resourceTypes []string // resource types passed to CreateExtendedCollection, if any
	properties    map[string]webdav.PropertyValue

	hasQuota       bool
	quotaAvailable int64
}

var (
	_ webdav.Node       = (*fileNode)(nil)
	_ webdav.File       = (*fileNode)(nil)
	_ webdav.Properties = (*fileNode)(nil)

	_ webdav.Node               = (*collectionNode)(nil)
	_ webdav.Collection         = (*collectionNode)(nil)
	_ webdav.Properties         = (*collectionNode)(nil)
	_ webdav.Quota              = (*collectionNode)(nil)
	_ webdav.ExtendedCollection = (*collectionNode)(nil)
)

func newFileNode(parent *collectionNode, name string, data []byte) *fileNode {
	return &fileNode{
		name:        name,
		parent:      parent,
		data:        data,
		contentType: guessContentType(name),
		modTime:     time.Now(),
		properties:  map[string]webdav.PropertyValue{},
	}
}

func newCollectionNode(parent *collectionNode, name string) *collectionNode {
	return &collectionNode{
		name:       name,
		parent:     parent,
		modTime:    time.Now(),
		properties: map[string]webdav.PropertyValue{},
	}
}

func guessContentType(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}

// fileNode: Node + File + Properties.

func (f *fileNode) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.name
}

func (f *fileNode) HasCapability(cap webdav.Capability) bool {
	switch cap {
	case webdav.CapFile, webdav.CapProperties:
		return true
	}
	return false
}

func (f *fileNode) Delete(_ context.Context) error {
	f.mu.RLock()
	parent, name := f.parent, f.name
	f.mu.RUnlock()
	return removeChild(parent, name)
}

func (f *fileNode) Get(_ context.Context) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, nil
}

func (f *fileNode) Put(_ context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append([]byte(nil), data...)
	f.modTime = time.Now()
	f.version++
	return nil
}

func (f *fileNode) Size(_ context.Context) (int64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data)), nil
}

func (f *fileNode) ETag(_ context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fmt.Sprintf(`"%x-%x"`, f.modTime.UnixNano(), f.version), nil
}

func (f *fileNode) ContentType(_ context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.contentType, nil
}

func (f *fileNode) LastModified(_ context.Context) (time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.modTime, nil
}

func (f *fileNode) GetProperties(_ context.Context, names []string) (map[string]webdav.PropertyValue, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return selectProperties(f.properties, names), nil
}

func (f *fileNode) UpdateProperties(_ context.Context, ops []webdav.PropertyMutation) (webdav.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	applyMutations(f.properties, ops)
	return webdav.UpdateResult{AllOK: true}, nil
}

// collectionNode: Node + Collection + ExtendedCollection + Properties + Quota.

func (c *collectionNode) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *collectionNode) HasCapability(cap webdav.Capability) bool {
	switch cap {
	case webdav.CapCollection, webdav.CapProperties, webdav.CapExtendedCollection:
		return true
	case webdav.CapQuota:
		return c.hasQuota
	}
	return false
}

func (c *collectionNode) Delete(_ context.Context) error {
	c.mu.RLock()
	parent, name := c.parent, c.name
	c.mu.RUnlock()
	return removeChild(parent, name)
}

func removeChild(parent *collectionNode, name string) error {
	if parent == nil {
		return webdav.NewError(webdav.KindForbidden, "cannot delete the root collection")
	}
	parent.mu.Lock()
	defer parent.mu.Unlock()
	for i, c := range parent.children {
		if c.Name() == name {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return nil
		}
	}
	return webdav.NewErrorf(webdav.KindNotFound, "%q already removed", name)
}

func (c *collectionNode) GetChild(_ context.Context, name string) (webdav.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, child := range c.children {
		if child.Name() == name {
			return child, nil
		}
	}
	return nil, webdav.NewErrorf(webdav.KindNotFound, "%q not found", name)
}

func (c *collectionNode) GetChildren(_ context.Context) ([]webdav.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]webdav.Node, len(c.children))
	copy(out, c.children)
	return out, nil
}

func (c *collectionNode) CreateFile(_ context.Context, name string, data []byte) (webdav.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasChildLocked(name) {
		return nil, webdav.NewErrorf(webdav.KindMethodNotAllowed, "%q already exists", name)
	}
	child := newFileNode(c, name, data)
	c.children = append(c.children, child)
	return child, nil
}

func (c *collectionNode) CreateDirectory(_ context.Context, name string) (webdav.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasChildLocked(name) {
		return nil, webdav.NewErrorf(webdav.KindMethodNotAllowed, "%q already exists", name)
	}
	child := newCollectionNode(c, name)
	c.children = append(c.children, child)
	return child, nil
}

// CreateExtendedCollection creates the child and applies its initial
// resource types and dead properties as one step, so a failure never
// leaves a bare, property-less collection behind for the core to roll
// back.
func (c *collectionNode) CreateExtendedCollection(_ context.Context, name string, resourceTypes []string, properties []webdav.PropertyMutation) (webdav.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasChildLocked(name) {
		return nil, webdav.NewErrorf(webdav.KindMethodNotAllowed, "%q already exists", name)
	}
	child := newCollectionNode(c, name)
	child.resourceTypes = resourceTypes
	if extra := extraResourceTypes(resourceTypes); len(extra) > 0 {
		child.properties[string(webdav.DAVName("resourcetype"))] = buildResourceTypeValue(extra)
	}
	applyMutations(child.properties, properties)
	c.children = append(c.children, child)
	return child, nil
}

func (c *collectionNode) hasChildLocked(name string) bool {
	for _, child := range c.children {
		if child.Name() == name {
			return true
		}
	}
	return false
}

func (c *collectionNode) GetProperties(_ context.Context, names []string) (map[string]webdav.PropertyValue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return selectProperties(c.properties, names), nil
}

func (c *collectionNode) UpdateProperties(_ context.Context, ops []webdav.PropertyMutation) (webdav.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	applyMutations(c.properties, ops)
	return webdav.UpdateResult{AllOK: true}, nil
}

func (c *collectionNode) QuotaInfo(_ context.Context) (used int64, available int64, err error) {
	c.mu.RLock()
	hasQuota, avail := c.hasQuota, c.quotaAvailable
	c.mu.RUnlock()
	if !hasQuota {
		return -1, -1, errors.New("quota not tracked on this node")
	}
	return totalSize(c), avail, nil
}

func totalSize(n webdav.Node) int64 {
	switch t := n.(type) {
	case *fileNode:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return int64(len(t.data))
	case *collectionNode:
		t.mu.RLock()
		children := append([]webdav.Node(nil), t.children...)
		t.mu.RUnlock()
		var total int64
		for _, c := range children {
			total += totalSize(c)
		}
		return total
	}
	return 0
}

func selectProperties(properties map[string]webdav.PropertyValue, names []string) map[string]webdav.PropertyValue {
	out := map[string]webdav.PropertyValue{}
	if len(names) == 0 {
		for k, v := range properties {
			out[k] = v
		}
		return out
	}
	for _, name := range names {
		if v, ok := properties[name]; ok {
			out[name] = v
		}
	}
	return out
}

func applyMutations(properties map[string]webdav.PropertyValue, ops []webdav.PropertyMutation) {
	for _, op := range ops {
		if op.Remove {
			delete(properties, op.Name)
			continue
		}
		properties[op.Name] = op.Value
	}
}

// extraResourceTypes filters the {DAV:}collection marker out of a resource
// type list, leaving whatever vendor-specific types a client asked for.
func extraResourceTypes(resourceTypes []string) []string {
	var extra []string
	collection := string(webdav.DAVName("collection"))
	for _, rt := range resourceTypes {
		if rt != collection {
			extra = append(extra, rt)
		}
	}
	return extra
}

// buildResourceTypeValue renders {DAV:}collection plus any extra types as
// the property value a subsequent PROPFIND will see, overriding the core's
// built-in provider (which only ever reports plain {DAV:}collection).
func buildResourceTypeValue(extra []string) webdav.PropertyValue {
	rt := webdav.ResourceTypeValue{webdav.DAVName("collection")}
	for _, e := range extra {
		ns, local := splitExternalClark(e)
		rt = append(rt, webdav.ClarkName(ns, local))
	}
	return rt
}

// splitExternalClark decomposes a "{ns}local" string without depending on
// webdav's private Clark-name parser.
func splitExternalClark(s string) (namespace, local string) {
	if len(s) == 0 || s[0] != '{' {
		return "", s
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '}' {
			return s[1:i], s[i+1:]
		}
	}
	return "", s
}
