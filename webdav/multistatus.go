package webdav

import (
	"bytes"
	"fmt"
	"net/http"
)

// PropEntry is one property name/value pair inside a propstat bucket. A
// nil Value renders a self-closing element, used for propname-only
// requests where only the name, not a value, is wanted.
type PropEntry struct {
	Name  clarkName
	Value PropertyValue
}

// PropStat is one status -> {propname -> value} bucket of a response.
type PropStat struct {
	Status int
	Props  []PropEntry
}

// MultiStatusResponse is per-resource: the href, plus its propstat
// buckets in first-use order.
type MultiStatusResponse struct {
	Href      string
	PropStats []*PropStat
}

// NewResponse starts a response for href with no propstat buckets yet.
func NewResponse(href string) *MultiStatusResponse {
	return &MultiStatusResponse{Href: href}
}

// AddProp appends name/value to the bucket for status, creating the
// bucket (in first-seen order) if this is the first property reported at
// that status.
func (r *MultiStatusResponse) AddProp(status int, name clarkName, value PropertyValue) {
	for _, ps := range r.PropStats {
		if ps.Status == status {
			ps.Props = append(ps.Props, PropEntry{Name: name, Value: value})
			return
		}
	}
	r.PropStats = append(r.PropStats, &PropStat{Status: status, Props: []PropEntry{{Name: name, Value: value}}})
}

// Bucket returns (creating if absent) the PropStat for status, for
// callers that want to build the Props slice themselves.
func (r *MultiStatusResponse) Bucket(status int) *PropStat {
	for _, ps := range r.PropStats {
		if ps.Status == status {
			return ps
		}
	}
	ps := &PropStat{Status: status}
	r.PropStats = append(r.PropStats, ps)
	return ps
}

func (r *MultiStatusResponse) writeXML(b *bytes.Buffer, ns *NamespaceMap) {
	d := ns.Prefix(davNamespace)
	fmt.Fprintf(b, "<%s:response>", d)
	fmt.Fprintf(b, "<%s:href>", d)
	escapeText(b, r.Href)
	fmt.Fprintf(b, "</%s:href>", d)

	for _, ps := range r.PropStats {
		if len(ps.Props) == 0 {
			// Empty status buckets are elided before serialization.
			continue
		}
		fmt.Fprintf(b, "<%s:propstat><%s:prop>", d, d)
		for _, p := range ps.Props {
			tag := ns.QName(p.Name)
			if p.Value == nil {
				fmt.Fprintf(b, "<%s/>", tag)
				continue
			}
			fmt.Fprintf(b, "<%s>", tag)
			p.Value.WriteInner(b, ns)
			fmt.Fprintf(b, "</%s>", tag)
		}
		fmt.Fprintf(b, "</%s:prop><%s:status>HTTP/1.1 %d %s</%s:status></%s:propstat>",
			d, d, ps.Status, http.StatusText(ps.Status), d, d)
	}
	fmt.Fprintf(b, "</%s:response>", d)
}

// RenderMultiStatus serializes a full 207 body. Namespace registration
// happens as a side effect of rendering, so declarations are collected
// only after every response has been written into the body buffer.
func RenderMultiStatus(responses []*MultiStatusResponse) []byte {
	ns := NewNamespaceMap()
	var body bytes.Buffer
	for _, r := range responses {
		r.writeXML(&body, ns)
	}

	d := ns.Prefix(davNamespace)
	var out bytes.Buffer
	out.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	fmt.Fprintf(&out, "<%s:multistatus%s>", d, ns.Declarations())
	out.Write(body.Bytes())
	fmt.Fprintf(&out, "</%s:multistatus>", d)
	return out.Bytes()
}
