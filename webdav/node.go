package webdav

import (
	"context"
	"time"
)

// Capability is one of the optional behaviours a Node may support. Handlers
// query capabilities rather than asserting a concrete node type, so a
// backend can implement only the subsets it needs.
type Capability int

const (
	// CapFile marks a node that holds bytes (File).
	CapFile Capability = iota
	// CapCollection marks a node that holds children (Collection).
	CapCollection
	// CapProperties marks a node with arbitrary dead properties (Properties).
	CapProperties
	// CapQuota marks a node that can report quota usage (Quota).
	CapQuota
	// CapExtendedCollection marks a collection that can create children
	// and set their properties atomically (ExtendedCollection).
	CapExtendedCollection
)

// Node is a resource in the tree. Its only universal behaviour is a name;
// everything else is reached through a capability probe and a type
// assertion to the corresponding interface below.
type Node interface {
	// Name returns the node's own name (the last path segment), not a
	// full path.
	Name() string

	// HasCapability reports whether the node implements the operation
	// set associated with cap. A handler must check this (or use a type
	// assertion, which is equivalent) before downcasting.
	HasCapability(cap Capability) bool

	// Delete removes this node (and, if a collection, everything under
	// it) from its parent. Every node supports this, file or collection
	// alike, since DELETE and the createCollection rollback path need to
	// remove either kind uniformly.
	Delete(ctx context.Context) error
}

// File is the capability set of a node that holds byte content.
type File interface {
	Node

	// Get returns the full content of the file. Callers that only need a
	// byte range should slice the result themselves; Get always returns
	// the whole body.
	Get(ctx context.Context) ([]byte, error)

	// Put replaces the file's content.
	Put(ctx context.Context, data []byte) error

	// Size returns the current content length in bytes.
	Size(ctx context.Context) (int64, error)

	// ETag returns a strong or weak entity tag, already including the
	// surrounding quotes, or "" if the backend has none.
	ETag(ctx context.Context) (string, error)

	// ContentType returns a MIME type, or "" if unknown.
	ContentType(ctx context.Context) (string, error)

	// LastModified returns the node's modification time.
	LastModified(ctx context.Context) (time.Time, error)
}

// Collection is the capability set of a node that holds named children.
type Collection interface {
	Node

	// GetChild resolves a single child by name. Returns a NotFound-kind
	// error if absent.
	GetChild(ctx context.Context, name string) (Node, error)

	// GetChildren lists all direct children, in no particular order.
	GetChildren(ctx context.Context) ([]Node, error)

	// CreateFile creates a new file child with the given content and
	// returns it.
	CreateFile(ctx context.Context, name string, data []byte) (Node, error)

	// CreateDirectory creates a new, empty collection child.
	CreateDirectory(ctx context.Context, name string) (Node, error)
}

// Properties is the capability set of a node that stores arbitrary "dead"
// properties keyed by Clark name, independent of the built-in live
// properties the core computes (see PropertyRegistry).
type Properties interface {
	Node

	// GetProperties returns the subset of names the node has a stored
	// value for, or every stored property if names is empty (used for
	// allprop/propname requests). Names absent from the result are
	// simply unknown to this node — the caller decides what that means
	// (404 bucket, or fall through to a built-in provider).
	GetProperties(ctx context.Context, names []string) (map[string]PropertyValue, error)

	// UpdateProperties applies a batch of property mutations and reports
	// the outcome. See UpdateResult for the three permitted shapes.
	UpdateProperties(ctx context.Context, ops []PropertyMutation) (UpdateResult, error)
}

// Quota is the capability set of a node that can report space usage,
// typically (but not necessarily) the root collection.
type Quota interface {
	Node

	// QuotaInfo returns (used, available) in bytes. Either value may be
	// -1 if the backend does not track it.
	QuotaInfo(ctx context.Context) (used int64, available int64, err error)
}

// ExtendedCollection is a Collection that can create a child and set its
// initial resource types and dead properties as a single atomic
// operation, rather than the core's createDirectory-then-updateProperties
// fallback sequence.
type ExtendedCollection interface {
	Collection

	// CreateExtendedCollection creates name with the given resource types
	// (Clark names, {DAV:}collection always included) and dead
	// properties, or fails atomically.
	CreateExtendedCollection(ctx context.Context, name string, resourceTypes []string, properties []PropertyMutation) (Node, error)
}

// Tree resolves paths to nodes and may offer backend-native copy/move.
type Tree interface {
	// GetNodeForPath resolves path (relative to the server base URI, no
	// leading/trailing slash) to a node. Returns a NotFound-kind error if
	// absent.
	GetNodeForPath(ctx context.Context, path string) (Node, error)

	// Copy duplicates the subtree rooted at src to dst. dst's parent must
	// already exist; dst itself must not, unless the caller has already
	// deleted it.
	Copy(ctx context.Context, src, dst string) error

	// Move relocates the subtree rooted at src to dst, with the same
	// preconditions as Copy.
	Move(ctx context.Context, src, dst string) error
}

// PropertyMutation is one requested change from a PROPPATCH or MKCOL body:
// either set Name to Value, or (Remove == true) remove Name entirely.
type PropertyMutation struct {
	Name   string
	Value  PropertyValue
	Remove bool
}

// UpdateResult is the outcome UpdateProperties reports back to the core.
// Exactly one of the three fields should be meaningful:
//   - AllOK true, Statuses nil: every property is 200.
//   - AllOK false, Statuses nil: every property is 403.
//   - Statuses non-nil: verbatim status -> names mapping; the core fills
//     in 424 for anything left unmentioned.
type UpdateResult struct {
	AllOK    bool
	Statuses map[int][]string
}
