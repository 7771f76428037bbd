package webdav

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// xmlElement is a minimal DOM node keyed by Clark name. Children are kept
// in an ordered slice, never a map, so that PROPPATCH mutation order and
// multi-status output order are stable.
type xmlElement struct {
	Name     clarkName
	Attr     []xml.Attr
	Children []*xmlElement
	Text     string
}

// firstChild returns the first child element with the given Clark name.
func (e *xmlElement) firstChild(name clarkName) (*xmlElement, bool) {
	for _, c := range e.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// childNames returns the Clark names of every direct child, in document
// order. Used to read {DAV:}resourcetype's children as a resource-type
// list.
func (e *xmlElement) childNames() []clarkName {
	names := make([]clarkName, 0, len(e.Children))
	for _, c := range e.Children {
		names = append(names, c.Name)
	}
	return names
}

// innerXML re-serializes the element's text and children, used to
// round-trip a property value the registry has no typed factory for.
// Attributes are not kept.
func (e *xmlElement) innerXML() string {
	var b bytes.Buffer
	escapeText(&b, e.Text)
	for _, c := range e.Children {
		c.writeXML(&b)
	}
	return b.String()
}

func (e *xmlElement) writeXML(b *bytes.Buffer) {
	ns, local := splitClark(e.Name)
	tag := local
	// Each element declares its own default namespace, so its Clark name
	// survives the round trip whatever prefix the client used.
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(` xmlns="`)
	escapeText(b, ns)
	b.WriteString(`">`)
	escapeText(b, e.Text)
	for _, c := range e.Children {
		c.writeXML(b)
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

// parseXMLBody decodes an entire request body into a single root
// xmlElement. Every element, regardless of namespace, is kept (unlike the
// teacher's xmlparser, which only followed "DAV:" elements) because
// PROPPATCH/MKCOL bodies may carry vendor-namespaced properties that the
// registry still needs to see.
func parseXMLBody(r io.Reader) (*xmlElement, error) {
	dec := xml.NewDecoder(r)
	var root *xmlElement
	var stack []*xmlElement

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parsing webdav xml body")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{Name: toClark(t.Name.Space, t.Name.Local), Attr: t.Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty or malformed xml body")
	}
	return root, nil
}

// trimmedText returns the element's text content with surrounding
// whitespace removed, the common case for scalar property values such as
// {DAV:}displayname.
func (e *xmlElement) trimmedText() string {
	return strings.TrimSpace(e.Text)
}
