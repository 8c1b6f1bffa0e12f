// Package xnode is a small DOM helper over golang.org/x/net/html with CSS
// selectors, used to inspect and pretty print rendered pages.
package xnode

import (
	"bytes"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/yosssi/gohtml"
	"golang.org/x/net/html"
)

type Node struct {
	*html.Node
}

func NewNode(b []byte) (*Node, error) {
	doc, err := html.Parse(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	return &Node{doc}, nil
}

// QuerySelector returns the first match or nil.
func (n *Node) QuerySelector(selectorStr string) *Node {
	selector, err := cascadia.Compile(selectorStr)
	if err != nil {
		return nil
	}
	matched := selector.MatchFirst(n.Node)
	if matched == nil {
		return nil
	}
	return &Node{matched}
}

type NodeList []*Node

func (n *Node) Find(selectorStr string) NodeList {
	selector, err := cascadia.Compile(selectorStr)
	if err != nil {
		return nil
	}
	matches := selector.MatchAll(n.Node)
	nodes := make([]*Node, len(matches))
	for i, match := range matches {
		nodes[i] = &Node{match}
	}
	return nodes
}

func (list NodeList) Each(callback func(i int, n *Node)) {
	for i, node := range list {
		callback(i, node)
	}
}

func (n *Node) GetAttribute(key string) (string, bool) {
	for _, attr := range n.Node.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func (n *Node) Attr(key string) string {
	val, _ := n.GetAttribute(key)
	return val
}

// HasClass reports whether the class attribute lists class.
func (n *Node) HasClass(class string) bool {
	for _, c := range strings.Fields(n.Attr("class")) {
		if c == class {
			return true
		}
	}
	return false
}

// Text is the concatenated text content, whitespace collapsed.
func (n *Node) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.TextNode {
			b.WriteString(h.Data)
			b.WriteString(" ")
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.Node)
	return strings.Join(strings.Fields(b.String()), " ")
}

// RawText is the text content exactly as written, nodes joined without a
// separator.
func (n *Node) RawText() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(h *html.Node) {
		if h.Type == html.TextNode {
			b.WriteString(h.Data)
		}
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.Node)
	return b.String()
}

func (n *Node) PrettyPrintHTML() string {
	return gohtml.Format(n.String())
}

func (n *Node) String() string {
	var buffer bytes.Buffer
	if err := html.Render(&buffer, n.Node); err != nil {
		return ""
	}
	return buffer.String()
}
