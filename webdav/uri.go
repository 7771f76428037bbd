package webdav

import (
	"net/url"
	"strings"
)

// clarkName encodes a WebDAV property name {namespace-URI}local-name,
// matching the registry's and the XML codec's internal representation.
// Properties with no namespace (rare, but seen in some clients) encode as
// just the local name with an empty namespace.
type clarkName string

// toClark builds a Clark-notation name from a namespace and local part. An
// empty namespace yields a bare local name, not "{}local".
func toClark(namespace, local string) clarkName {
	if namespace == "" {
		return clarkName(local)
	}
	return clarkName("{" + namespace + "}" + local)
}

// ClarkName is toClark's exported counterpart, letting a backend or plugin
// outside this package build ResourceTypeValue/SupportedReportSetValue
// entries or PropertyMutation names without spelling out "{ns}local" by
// hand.
func ClarkName(namespace, local string) clarkName {
	return toClark(namespace, local)
}

// DAVName is ClarkName namespaced to "DAV:", the common case.
func DAVName(local string) clarkName {
	return toClark(davNamespace, local)
}

// splitClark decomposes a Clark name back into namespace and local parts.
func splitClark(name clarkName) (namespace, local string) {
	s := string(name)
	if len(s) == 0 || s[0] != '{' {
		return "", s
	}
	end := strings.IndexByte(s, '}')
	if end < 0 {
		return "", s
	}
	return s[1:end], s[end+1:]
}

// normalizeBaseURI ensures a base URI used for calculateURI ends in "/".
func normalizeBaseURI(base string) string {
	if base == "" {
		return "/"
	}
	if !strings.HasSuffix(base, "/") {
		return base + "/"
	}
	return base
}

// calculateURI strips scheme/authority (if present), collapses duplicate
// slashes, percent-decodes, removes the baseURI prefix and trims the
// leading/trailing slash of what remains. It is the core's single point
// of URI-to-path translation.
func calculateURI(raw, baseURI string) (string, *Error) {
	baseURI = normalizeBaseURI(baseURI)

	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}

	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", NewErrorf(KindBadRequest, "cannot decode URI %q", raw)
	}
	p = decoded

	basePath := baseURI
	if strings.HasPrefix(p, basePath) {
		p = p[len(basePath):]
	} else if p+"/" == basePath {
		// Bare base URI without trailing slash maps to the empty path.
		p = ""
	} else {
		return "", NewErrorf(KindForbidden, "%q is not inside the server's base URI %q", raw, baseURI)
	}

	return strings.Trim(p, "/"), nil
}

// joinPath joins a path and a child name the way the tree expects:
// no leading slash, single "/" separator, empty parent yields just name.
func joinPath(parent, name string) string {
	parent = strings.Trim(parent, "/")
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// splitPath splits path into (parent, name). For a root-level path, parent
// is "".
func splitPath(path string) (parent, name string) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// hrefFor builds the href for a resolved path relative to baseURI,
// appending a trailing slash when isCollection is true.
func hrefFor(baseURI, path string, isCollection bool) string {
	baseURI = normalizeBaseURI(baseURI)
	escaped := escapePath(path)
	href := baseURI + escaped
	if isCollection && !strings.HasSuffix(href, "/") {
		href += "/"
	}
	return href
}

// escapePath percent-encodes each path segment independently, leaving "/"
// as a literal separator.
func escapePath(path string) string {
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
