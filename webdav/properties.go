package webdav

import (
	"bytes"
	"fmt"
	"net/http"
	"time"
)

// davNamespace is the WebDAV XML namespace URI, always bound to prefix "d".
const davNamespace = "DAV:"

// protectedProperties can never be changed by PROPPATCH; attempting to do
// so always yields 403 for that property name without touching the rest
// of the batch.
var protectedProperties = map[clarkName]bool{
	toClark(davNamespace, "getcontentlength"):       true,
	toClark(davNamespace, "getetag"):                true,
	toClark(davNamespace, "getlastmodified"):        true,
	toClark(davNamespace, "lockdiscovery"):          true,
	toClark(davNamespace, "resourcetype"):           true,
	toClark(davNamespace, "supportedlock"):          true,
	toClark(davNamespace, "quota-used-bytes"):        true,
	toClark(davNamespace, "quota-available-bytes"):   true,
	toClark(davNamespace, "quota"):                  true,
	toClark(davNamespace, "alternate-URI-set"):       true,
	toClark(davNamespace, "principal-URL"):           true,
	toClark(davNamespace, "group-membership"):        true,
	toClark(davNamespace, "principal-collection-set"): true,
	toClark(davNamespace, "current-user-privilege-set"): true,
	toClark(davNamespace, "supported-privilege-set"): true,
	toClark(davNamespace, "acl"):                    true,
	toClark(davNamespace, "acl-restrictions"):       true,
	toClark(davNamespace, "inherited-acl-set"):      true,
	toClark(davNamespace, "current-user-principal"):  true,
}

func isProtected(name string) bool {
	return protectedProperties[clarkName(name)]
}

// NamespaceMap resolves an XML namespace URI to the prefix used when
// serializing responses. "DAV:" is always "d"; anything else gets "a" the
// first time it's seen (matching the error envelope's vendor namespace),
// then "customN" for subsequent unknown namespaces, with
// xmlns:<prefix>="<uri>" declared on the enclosing element the first time
// a prefix is used.
type NamespaceMap struct {
	prefixes map[string]string
	order    []string
	next     int
}

// NewNamespaceMap seeds the map with the DAV: -> d binding every response
// needs.
func NewNamespaceMap() *NamespaceMap {
	return &NamespaceMap{
		prefixes: map[string]string{davNamespace: "d"},
		order:    []string{davNamespace},
	}
}

// Prefix returns the prefix for ns, registering a new one (and recording
// that it needs a declaration) if this is the first time ns is seen.
func (m *NamespaceMap) Prefix(ns string) string {
	if ns == "" {
		return ""
	}
	if p, ok := m.prefixes[ns]; ok {
		return p
	}
	var p string
	if _, used := m.usedPrefix("a"); !used {
		p = "a"
	} else {
		m.next++
		p = fmt.Sprintf("custom%d", m.next)
	}
	m.prefixes[ns] = p
	m.order = append(m.order, ns)
	return p
}

func (m *NamespaceMap) usedPrefix(p string) (string, bool) {
	for ns, pp := range m.prefixes {
		if pp == p {
			return ns, true
		}
	}
	return "", false
}

// Declarations renders xmlns:<prefix>="<uri>" for every namespace seen so
// far, in first-use order, suitable for attaching to a root element.
func (m *NamespaceMap) Declarations() string {
	var b bytes.Buffer
	for _, ns := range m.order {
		fmt.Fprintf(&b, ` xmlns:%s="%s"`, m.prefixes[ns], ns)
	}
	return b.String()
}

// QName renders a Clark name as prefix:local using m, registering the
// namespace if necessary. A property with no namespace renders with no
// prefix at all.
func (m *NamespaceMap) QName(name clarkName) string {
	ns, local := splitClark(name)
	prefix := m.Prefix(ns)
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// PropertyValue is a typed property payload with its own serialization.
// WriteInner writes only the element's inner content (child elements or
// text); the caller is responsible for the enclosing <prefix:local> tag,
// since the tag name comes from the property's Clark name, not the
// value's Go type.
type PropertyValue interface {
	WriteInner(b *bytes.Buffer, ns *NamespaceMap)
}

// StringValue is a scalar text property (e.g. {DAV:}displayname).
type StringValue string

func (v StringValue) WriteInner(b *bytes.Buffer, _ *NamespaceMap) {
	escapeText(b, string(v))
}

// IntValue is a scalar integer property (e.g. {DAV:}getcontentlength).
type IntValue int64

func (v IntValue) WriteInner(b *bytes.Buffer, _ *NamespaceMap) {
	fmt.Fprintf(b, "%d", int64(v))
}

// DateValue is an RFC 1123 HTTP-date property (e.g. {DAV:}getlastmodified).
type DateValue time.Time

func (v DateValue) WriteInner(b *bytes.Buffer, _ *NamespaceMap) {
	b.WriteString(time.Time(v).UTC().Format(http.TimeFormat))
}

// ResourceTypeValue lists the resource-type child elements, e.g.
// {DAV:}collection for a collection, or empty for a plain file.
type ResourceTypeValue []clarkName

func (v ResourceTypeValue) WriteInner(b *bytes.Buffer, ns *NamespaceMap) {
	for _, t := range v {
		fmt.Fprintf(b, "<%s/>", ns.QName(t))
	}
}

// IsCollection reports whether this resource type includes {DAV:}collection.
func (v ResourceTypeValue) IsCollection() bool {
	for _, t := range v {
		if t == toClark(davNamespace, "collection") {
			return true
		}
	}
	return false
}

// SupportedReportSetValue renders the supported-report-set structure; an
// empty value (the core's default when no report is registered) renders
// as an empty element.
type SupportedReportSetValue []clarkName

func (v SupportedReportSetValue) WriteInner(b *bytes.Buffer, ns *NamespaceMap) {
	for _, r := range v {
		b.WriteString("<")
		b.WriteString(ns.Prefix(davNamespace))
		b.WriteString(":supported-report><")
		b.WriteString(ns.Prefix(davNamespace))
		b.WriteString(":report><")
		b.WriteString(ns.QName(r))
		b.WriteString("/></")
		b.WriteString(ns.Prefix(davNamespace))
		b.WriteString(":report></")
		b.WriteString(ns.Prefix(davNamespace))
		b.WriteString(":supported-report>")
	}
}

// HrefValue renders a nested {DAV:}href, used inside structured
// properties like lockdiscovery.
type HrefValue string

func (v HrefValue) WriteInner(b *bytes.Buffer, ns *NamespaceMap) {
	b.WriteString("<")
	b.WriteString(ns.Prefix(davNamespace))
	b.WriteString(":href>")
	escapeText(b, string(v))
	b.WriteString("</")
	b.WriteString(ns.Prefix(davNamespace))
	b.WriteString(":href>")
}

// RawValue is verbatim XML content, used to round-trip a property the
// registry has no typed factory for: the client's submitted text and
// child elements (with their namespaces) are stored and played back on
// the next PROPFIND. Attributes of the submitted elements are not kept.
type RawValue string

func (v RawValue) WriteInner(b *bytes.Buffer, _ *NamespaceMap) {
	b.WriteString(string(v))
}

func escapeText(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
}

// PropertyFactory converts a parsed request-body element into a typed
// PropertyValue. Registered per Clark name in a PropertyRegistry.
type PropertyFactory func(el *xmlElement) PropertyValue

// PropertyRegistry is "{Clark name -> value factory}" consulted when
// parsing PROPPATCH/MKCOL bodies. Properties with no registered
// factory fall back to RawValue, preserving the client's XML verbatim.
type PropertyRegistry struct {
	factories map[clarkName]PropertyFactory
}

// NewPropertyRegistry returns a registry pre-populated with factories for
// the handful of properties whose wire shape is structured rather than a
// bare string (resourcetype's children). Scalar dead properties such as
// {DAV:}displayname need no factory; RawValue already renders their text
// content correctly, and most clients only ever set scalar dead
// properties.
func NewPropertyRegistry() *PropertyRegistry {
	r := &PropertyRegistry{factories: map[clarkName]PropertyFactory{}}
	r.Register(toClark(davNamespace, "resourcetype"), func(el *xmlElement) PropertyValue {
		return ResourceTypeValue(el.childNames())
	})
	return r
}

// Register adds or replaces the factory for name.
func (r *PropertyRegistry) Register(name clarkName, f PropertyFactory) {
	r.factories[name] = f
}

// Parse converts el into (Clark name, value), using the registered
// factory if one exists and RawValue otherwise.
func (r *PropertyRegistry) Parse(el *xmlElement) (clarkName, PropertyValue) {
	if f, ok := r.factories[el.Name]; ok {
		return el.Name, f(el)
	}
	return el.Name, RawValue(el.innerXML())
}
