// Package dom reduces rendered page HTML to a reviewable skeleton.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Cleaned is a page's HTML reduced to the structure worth reviewing
// next to its screenshots.
type Cleaned struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

// Clean parses rendered HTML and keeps its semantic skeleton: block
// structure, text and the attributes used to target elements. Scripts,
// styles and embedded content are dropped. Output stops once limit bytes of
// content have been written.
func Clean(rawHTML string, limit int) (*Cleaned, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	w := &domWriter{limit: limit}
	w.children(doc, 0)

	return &Cleaned{
		HTML:        w.sb.String(),
		Title:       findTitle(doc),
		Description: findMetaContent(doc, "description"),
		Truncated:   w.truncated,
	}, nil
}

var (
	droppedTags = set("script", "style", "noscript", "iframe", "embed", "object", "svg", "template")

	blockTags = set("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dialog", "details", "summary")

	voidTags = set("area", "base", "br", "col", "embed", "hr", "img", "input", "link",
		"meta", "param", "source", "track", "wbr")

	// targeting attributes kept on every element
	globalAttrs = set("id", "class", "role", "aria-label", "aria-describedby", "aria-haspopup", "aria-expanded")

	tagAttrs = map[string]map[string]bool{
		"a":        set("href", "target"),
		"img":      set("src", "alt"),
		"input":    set("name", "type", "placeholder", "value"),
		"textarea": set("name", "type", "placeholder", "value"),
		"select":   set("name", "type", "placeholder", "value"),
		"button":   set("type", "name"),
		"form":     set("action", "method"),
		"table":    set("summary"),
	}
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

// keepAttr reports whether an attribute helps identify the element
func keepAttr(tag, attr string) bool {
	attr = strings.ToLower(attr)
	return globalAttrs[attr] || strings.HasPrefix(attr, "data-") || tagAttrs[tag][attr]
}

type domWriter struct {
	sb        strings.Builder
	written   int
	limit     int
	truncated bool
}

func (w *domWriter) full() bool {
	if w.written >= w.limit {
		w.truncated = true
	}
	return w.truncated
}

func (w *domWriter) node(n *html.Node, depth int) {
	if w.full() {
		return
	}

	switch n.Type {
	case html.CommentNode:
	case html.TextNode:
		w.text(n.Data)
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if !droppedTags[tag] {
			w.element(n, tag, depth)
		}
	default:
		w.children(n, depth)
	}
}

func (w *domWriter) children(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil && !w.truncated; c = c.NextSibling {
		w.node(c, depth)
	}
}

func (w *domWriter) text(data string) {
	text := strings.TrimSpace(data)
	if text == "" {
		return
	}

	if remaining := w.limit - w.written; len(text) > remaining {
		w.sb.WriteString(text[:remaining])
		w.sb.WriteString("...")
		w.written = w.limit
		w.truncated = true
		return
	}
	w.sb.WriteString(text)
	w.written += len(text)
}

func (w *domWriter) element(n *html.Node, tag string, depth int) {
	block := blockTags[tag]
	if block && depth > 0 {
		w.indent(depth)
	}

	w.sb.WriteString("<" + tag)
	for _, a := range n.Attr {
		if keepAttr(tag, a.Key) {
			fmt.Fprintf(&w.sb, ` %s="%s"`, a.Key, html.EscapeString(a.Val))
		}
	}
	w.sb.WriteString(">")
	w.written += len(tag) + 2

	w.children(n, depth+1)

	if voidTags[tag] {
		return
	}
	if block {
		w.indent(depth)
	}
	w.sb.WriteString("</" + tag + ">")
	w.written += len(tag) + 3
}

func (w *domWriter) indent(depth int) {
	w.sb.WriteString("\n")
	w.sb.WriteString(strings.Repeat("  ", depth))
}

// findTitle returns the text of the first <title> element
func findTitle(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

// findMetaContent returns the content of the first <meta name=name> element
func findMetaContent(doc *html.Node, name string) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == name && attr(n, "content") != ""
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

// findElement returns the first element in document order matching pred
func findElement(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
