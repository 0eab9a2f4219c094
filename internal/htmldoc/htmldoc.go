// Package htmldoc wraps golang.org/x/net/html with the small query and
// mutation helpers the transform actions need.
package htmldoc

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Parse parses a complete HTML document.
func Parse(content []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// Render serializes a document back to bytes.
func Render(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render HTML: %w", err)
	}
	return buf.Bytes(), nil
}

// Walk visits every node below (and including) n in document order. Returning
// false from fn skips the node's children.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		// fn may detach c; remember the sibling first.
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// FindAll returns every element below n for which match returns true.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(n, func(node *html.Node) bool {
		if node.Type == html.ElementNode && match(node) {
			out = append(out, node)
		}
		return true
	})
	return out
}

// Tag matches elements by name.
func Tag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == name }
}

// HasAttr matches elements carrying the attribute key, whatever its value.
func HasAttr(key string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		_, ok := Attr(n, key)
		return ok
	}
}

// Attr returns the first value of attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrCount returns how many times attribute key occurs on n.
func AttrCount(n *html.Node, key string) int {
	c := 0
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			c++
		}
	}
	return c
}

// SetAttr replaces the value of an existing attribute or appends it.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasToken reports whether the whitespace-separated attribute value contains token
// (case-insensitively), as for rel and class.
func HasToken(val, token string) bool {
	for _, f := range strings.Fields(val) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// Remove detaches n from its parent. It returns false if n was already detached.
func Remove(n *html.Node) bool {
	if n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// RemoveAll detaches every element below doc matching match and returns the count.
// Nested matches inside a removed element are removed with it.
func RemoveAll(doc *html.Node, match func(*html.Node) bool) int {
	removed := 0
	Walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			if Remove(n) {
				removed++
			}
			return false
		}
		return true
	})
	return removed
}
