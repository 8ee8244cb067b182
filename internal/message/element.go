package message

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
)

// Element wraps a parsed XML element. Simple element paths passed to Find
// and FindText are qualified with the default namespace in scope at the
// element, so callers can write "./ConnectionInfo/CallId" whether or not
// the document declares xmlns="...".
type Element struct {
	el *etree.Element
	ns string // default namespace in scope, "" when none
}

// ParseElement parses data as a complete XML document and returns its root
// element. Empty input, text outside the root and multiple roots are errors.
func ParseElement(data []byte) (*Element, error) {
	if err := checkWellFormed(data); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("no root element")
	}
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return nil, fmt.Errorf("text %q outside root element", abbreviate(t.Data))
			}
		case *etree.Element:
			if t != root {
				return nil, fmt.Errorf("multiple root elements (%s, %s)", root.Tag, t.Tag)
			}
		}
	}

	return wrap(root), nil
}

// checkWellFormed runs the strict encoding/xml tokenizer over data, which
// verifies tag balance before etree builds the tree.
func checkWellFormed(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func wrap(el *etree.Element) *Element {
	return &Element{el: el, ns: defaultNamespace(el)}
}

// Tag returns the local name of the element.
func (e *Element) Tag() string {
	return e.el.Tag
}

// Namespace returns the default namespace in scope at the element.
func (e *Element) Namespace() string {
	return e.ns
}

// Text returns the element's leading character data (CDATA included).
func (e *Element) Text() string {
	return e.el.Text()
}

// SetText replaces the element's character data.
func (e *Element) SetText(text string) {
	e.el.SetText(text)
}

// Children returns the child elements in document order.
func (e *Element) Children() []*Element {
	kids := e.el.ChildElements()
	out := make([]*Element, 0, len(kids))
	for _, k := range kids {
		out = append(out, wrap(k))
	}
	return out
}

// Find returns the first element matching path, or nil. Paths are
// slash-separated relative paths; "." and empty segments are skipped and
// "*" matches any child.
func (e *Element) Find(path string) *Element {
	current := []*etree.Element{e.el}
	// Segments are qualified one at a time: namespace URIs contain '/'.
	for _, raw := range strings.Split(path, "/") {
		if raw == "" || raw == "." {
			continue
		}
		seg := qualifySegment(raw, e.ns)
		var next []*etree.Element
		for _, parent := range current {
			for _, child := range parent.ChildElements() {
				if matchSegment(child, seg) {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return wrap(current[0])
}

// FindText returns the text of the element at path and whether it exists.
func (e *Element) FindText(path string) (string, bool) {
	found := e.Find(path)
	if found == nil {
		return "", false
	}
	return found.Text(), true
}

// Bytes serializes the element as a standalone document with the
// xmlns and xmlns:xsi declarations removed, the form receivers expect.
func (e *Element) Bytes() ([]byte, error) {
	dup := e.el.Copy()
	stripNamespaceDecls(dup)

	doc := etree.NewDocument()
	doc.SetRoot(dup)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", e.el.Tag, err)
	}
	return out, nil
}

// String returns the serialized element, or an error marker.
func (e *Element) String() string {
	b, err := e.Bytes()
	if err != nil {
		return fmt.Sprintf("<!-- %v -->", err)
	}
	return string(b)
}

func stripNamespaceDecls(el *etree.Element) {
	kept := el.Attr[:0]
	for _, a := range el.Attr {
		if (a.Space == "" && a.Key == "xmlns") || (a.Space == "xmlns" && a.Key == "xsi") {
			continue
		}
		kept = append(kept, a)
	}
	el.Attr = kept

	for _, child := range el.ChildElements() {
		stripNamespaceDecls(child)
	}
}

// matchSegment reports whether el satisfies one path segment: "*", a
// "{uri}local" qualified name, a "prefix:local" name, or a bare local name
// in no namespace.
func matchSegment(el *etree.Element, seg string) bool {
	if seg == "*" {
		return true
	}
	if strings.HasPrefix(seg, "{") {
		end := strings.IndexByte(seg, '}')
		if end < 0 {
			return false
		}
		return el.Tag == seg[end+1:] && namespaceOf(el) == seg[1:end]
	}
	if prefix, local, ok := strings.Cut(seg, ":"); ok {
		return el.Space == prefix && el.Tag == local
	}
	return el.Tag == seg && namespaceOf(el) == ""
}

// namespaceOf resolves the namespace URI of el from the declarations on it
// and its ancestors.
func namespaceOf(el *etree.Element) string {
	if el.Space == "" {
		return defaultNamespace(el)
	}
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space == "xmlns" && a.Key == el.Space {
				return a.Value
			}
		}
	}
	return ""
}

// defaultNamespace returns the nearest xmlns="..." declaration in scope.
func defaultNamespace(el *etree.Element) string {
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, a := range cur.Attr {
			if a.Space == "" && a.Key == "xmlns" {
				return a.Value
			}
		}
	}
	return ""
}

func abbreviate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
