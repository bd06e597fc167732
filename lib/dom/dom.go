// Package dom is the server-side DOM used by hxview views.
//
// Elements are golang.org/x/net/html nodes. Selectors are compiled with
// cascadia, so the query surface matches what a browser would accept for
// the common CSS subset (type, class, id, attribute and combinators).
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is an element handle.
type Node = html.Node

// Selection is an ordered set of matched elements.
type Selection []*Node

// Matcher is a compiled selector.
type Matcher = cascadia.Matcher

// ErrInvalidSelector is returned when a selector does not compile.
var ErrInvalidSelector = errors.New("dom: invalid selector")

// Len returns the number of matched elements.
func (s Selection) Len() int {
	return len(s)
}

// First returns the first element or nil.
func (s Selection) First() *Node {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// Contains reports whether n is part of the selection.
func (s Selection) Contains(n *Node) bool {
	for _, el := range s {
		if el == n {
			return true
		}
	}
	return false
}

// Compile parses a CSS selector.
func Compile(selector string) (Matcher, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	return sel, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(selector string) Matcher {
	m, err := Compile(selector)
	if err != nil {
		panic(err)
	}
	return m
}

// QueryAll returns the descendants of root matching m, in document order.
// root itself is never part of the result.
func QueryAll(root *Node, m Matcher) Selection {
	if root == nil || m == nil {
		return nil
	}
	return Selection(cascadia.QueryAll(root, m))
}

// Query returns the first descendant of root matching m.
func Query(root *Node, m Matcher) *Node {
	if root == nil || m == nil {
		return nil
	}
	return cascadia.Query(root, m)
}

// NewElement creates a detached element.
func NewElement(tag string, attrs map[string]string) *Node {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		tag = "div"
	}
	n := &Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	return n
}

// Attr returns the value of an attribute.
func Attr(n *Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Empty removes all children of el.
func Empty(el *Node) {
	if el == nil {
		return
	}
	for c := el.FirstChild; c != nil; {
		next := c.NextSibling
		el.RemoveChild(c)
		c = next
	}
}

// Detach removes el from its parent. It is a no-op for detached nodes.
func Detach(el *Node) {
	if el == nil || el.Parent == nil {
		return
	}
	el.Parent.RemoveChild(el)
}

// Append moves child to the end of parent's children.
func Append(parent, child *Node) {
	Detach(child)
	parent.AppendChild(child)
}

// SetInnerHTML replaces the children of el with the parsed markup.
func SetInnerHTML(el *Node, markup string) error {
	if el == nil {
		return errors.New("dom: nil element")
	}
	ctx := el
	if ctx.Type != html.ElementNode {
		ctx = NewElement("div", nil)
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	Empty(el)
	for _, n := range nodes {
		el.AppendChild(n)
	}
	return nil
}

// InnerHTML renders the children of n.
func InnerHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// OuterHTML renders n including its own tag.
func OuterHTML(n *Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// Text returns the concatenated text content of n.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// Document is a parsed HTML page.
type Document struct {
	root *Node
}

// Parse parses a full HTML document. Missing html/head/body elements are
// synthesized by the parser.
func Parse(markup string) (*Document, error) {
	return ParseReader(strings.NewReader(markup))
}

// ParseReader parses a full HTML document from r.
func ParseReader(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() *Node {
	return d.root
}

// Find returns the first element matching selector.
func (d *Document) Find(selector string) (*Node, error) {
	m, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return Query(d.root, m), nil
}

// FindAll returns every element matching selector.
func (d *Document) FindAll(selector string) (Selection, error) {
	m, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return QueryAll(d.root, m), nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document.
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}
