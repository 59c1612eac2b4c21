package transform

import (
	"log/slog"
	"slices"

	"golang.org/x/net/html"

	"miragend/internal/dom"
)

// PatchDocument applies p to doc. Every step is best effort: a missing
// target is logged and skipped without affecting the other steps.
func PatchDocument(doc *html.Node, p *Patch) {
	replaceChildren(doc, p.Target, dom.ExtractContents(dom.ParseFragment(p.Content)))

	for _, id := range p.RemoveNodes {
		replaceChildren(doc, id, nil)
	}

	removeMetaTags(doc, p.RemoveMetaTags)
}

func replaceChildren(doc *html.Node, id string, children []*html.Node) {
	if id == "" {
		return
	}
	node := dom.FindByID(doc, id)
	if node == nil {
		slog.Warn("Node not found", "id", id)
		return
	}
	dom.ReplaceChildren(node, children)
}

// removeMetaTags drops <meta> elements directly under <head> whose name or
// property is listed in tags.
func removeMetaTags(doc *html.Node, tags []string) {
	if len(tags) == 0 {
		return
	}
	head := dom.FindHead(doc)
	if head == nil {
		return
	}

	for c := head.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && c.Data == "meta" && metaMatches(c, tags) {
			head.RemoveChild(c)
		}
		c = next
	}
}

func metaMatches(meta *html.Node, tags []string) bool {
	for _, key := range []string{"name", "property"} {
		if v, ok := dom.GetAttr(meta, key); ok && slices.Contains(tags, v) {
			return true
		}
	}
	return false
}

// InjectScript appends <script src="src"></script> and a newline to the
// document's <head>.
func InjectScript(doc *html.Node, src string) {
	head := dom.FindHead(doc)
	if head == nil {
		slog.Warn("No head element to inject script into", "src", src)
		return
	}
	head.AppendChild(dom.NewScript(src))
	head.AppendChild(dom.NewText("\n"))
}
