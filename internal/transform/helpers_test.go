package transform

import (
	"testing"

	"golang.org/x/net/html"

	"miragend/internal/dom"
	"miragend/internal/obfuscate"
)

// newTestCodec maps every lowercase letter to 'x' and every uppercase
// letter to 'X', which keeps results deterministic.
func newTestCodec() *obfuscate.Codec {
	return obfuscate.NewCodec([]obfuscate.Mapping{
		{SourceStart: 'a', SourceEnd: 'z', TargetStart: 'x', TargetEnd: 'x', Comment: "lower"},
		{SourceStart: 'A', SourceEnd: 'Z', TargetStart: 'X', TargetEnd: 'X', Comment: "upper"},
	})
}

func mustParse(t *testing.T, text string) *html.Node {
	t.Helper()
	doc, err := dom.ParseDocument(text)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

func mustRender(t *testing.T, doc *html.Node) string {
	t.Helper()
	out, err := dom.Render(doc)
	if err != nil {
		t.Fatalf("failed to render document: %v", err)
	}
	return out
}

// textOf returns the concatenated text of the element with the given id.
func textOf(t *testing.T, doc *html.Node, id string) string {
	t.Helper()
	node := dom.FindByID(doc, id)
	if node == nil {
		t.Fatalf("element %s not found", id)
	}
	var text string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			text += n.Data
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(node)
	return text
}
