// Package dom wraps golang.org/x/net/html with the parse, render and tree
// mutation helpers the transformation walkers build on.
//
// A tree returned by ParseDocument or ParseFragment belongs to the caller
// and must not be shared between goroutines.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a complete HTML document.
func ParseDocument(text string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseFragment parses an HTML snippet in a <body> context. The parsed
// nodes are placed under a document root and an <html> wrapper element so
// the result has the same shape as a document; use ExtractContents to get
// the real top-level nodes back. Parsing never fails: the HTML parsing
// rules recover from any input.
func ParseFragment(text string) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	wrapper := newElement(atom.Html)
	root.AppendChild(wrapper)

	nodes, err := html.ParseFragment(strings.NewReader(text), newElement(atom.Body))
	if err != nil {
		// Only possible on reader failure, which a strings.Reader never has.
		return root
	}
	for _, n := range nodes {
		wrapper.AppendChild(n)
	}
	return root
}

// Render serializes a tree back to HTML text.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.String(), nil
}

// FindByID returns the first element in document order whose id attribute
// equals id, or nil.
func FindByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := GetAttr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// FindFirst returns the first element in document order with the given tag
// name, or nil.
func FindFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element with the given tag name in document order.
func FindAll(root *html.Node, tag string) []*html.Node {
	var found []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		return true
	})
	return found
}

// FindHead returns the document's <head> element, or nil.
func FindHead(root *html.Node) *html.Node {
	return FindFirst(root, "head")
}

// FindAllMeta returns every <meta> element in document order, wherever it
// appears in the tree.
func FindAllMeta(root *html.Node) []*html.Node {
	return FindAll(root, "meta")
}

// GetAttr returns the value of the attribute named key.
func GetAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr replaces the value of an existing attribute and reports whether
// the attribute was present. Absent attributes are not created.
func SetAttr(n *html.Node, key, value string) bool {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return true
		}
	}
	return false
}

// Children returns n's child nodes in order.
func Children(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return children
}

// ReplaceChildren replaces the whole child list of n with children, in the
// given order. Nodes still attached elsewhere are detached first.
func ReplaceChildren(n *html.Node, children []*html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		n.AppendChild(c)
	}
}

// ExtractContents returns the real top-level nodes of a parsed tree by
// descending past the document root and the <html> wrapper element.
func ExtractContents(root *html.Node) []*html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return Children(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode || c.Type == html.DocumentNode {
			return ExtractContents(c)
		}
	}
	return nil
}

// NewScript builds a <script src="..."></script> element.
func NewScript(src string) *html.Node {
	script := newElement(atom.Script)
	script.Attr = []html.Attribute{{Key: "src", Val: src}}
	return script
}

// NewText builds a text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

// walk visits n and its descendants in pre-order until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
