package dom

import (
	"testing"

	"golang.org/x/net/html"
)

const sampleDocument = `
<html>
	<head>
		<title>Test</title>
	</head>
	<body>
		<div id="hello">
			<p>Hello, World!</p>
		</div>
	</body>
</html>`

func mustParse(t *testing.T, text string) *html.Node {
	t.Helper()
	doc, err := ParseDocument(text)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

func TestParseDocument(t *testing.T) {
	doc := mustParse(t, sampleDocument)
	if doc.Type != html.DocumentNode {
		t.Errorf("expected document node, got %v", doc.Type)
	}
}

func TestParseFragment(t *testing.T) {
	root := ParseFragment(`<div><p>Hello, World!</p></div> tail`)
	if root.Type != html.DocumentNode {
		t.Fatalf("expected document root, got %v", root.Type)
	}

	contents := ExtractContents(root)
	if len(contents) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(contents))
	}
	if contents[0].Data != "div" {
		t.Errorf("expected div, got %s", contents[0].Data)
	}
	if contents[1].Type != html.TextNode || contents[1].Data != " tail" {
		t.Errorf("expected trailing text node, got %q", contents[1].Data)
	}
}

func TestFindByID(t *testing.T) {
	doc := mustParse(t, sampleDocument)

	node := FindByID(doc, "hello")
	if node == nil {
		t.Fatal("expected element with id hello")
	}
	if node.Data != "div" {
		t.Errorf("expected div, got %s", node.Data)
	}
	if again := FindByID(doc, "hello"); again != node {
		t.Error("expected repeated lookups to return the same element")
	}
	if FindByID(doc, "missing") != nil {
		t.Error("expected nil for missing id")
	}
}

func TestFindByIDFirstInDocumentOrder(t *testing.T) {
	doc := mustParse(t, `<div id="x"><span id="x">inner</span></div><p id="x"></p>`)

	node := FindByID(doc, "x")
	if node == nil || node.Data != "div" {
		t.Errorf("expected outer div to be found first, got %v", node)
	}
}

func TestFindHead(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Test title</title></head><body><div><p>Hello</p></div></body></html>`)

	head := FindHead(doc)
	if head == nil {
		t.Fatal("expected head element")
	}
	if len(Children(head)) != 1 {
		t.Errorf("expected 1 child in head, got %d", len(Children(head)))
	}
}

func TestFindAllMeta(t *testing.T) {
	doc := mustParse(t, `
<html>
	<head>
		<meta property="og:description" content="Some description...">
		<meta property="og:locale" content="zh-CN">
		<meta property="og:site_name" content="Site Name">
		<meta property="og:title" content="Some title... | Site Name">
		<meta property="og:type" content="article">
		<meta property="og:url" content="http://...">
		<meta property="article:modified_time" content="2024-10-24T05:36:47+08:00">
		<title>Test</title>
	</head>
	<body>
		<div>
			<meta property="custom" content="custom/non-standard locations">
			<p>Hello, World!</p>
		</div>
	</body>
</html>`)

	metas := FindAllMeta(doc)
	if len(metas) != 8 {
		t.Fatalf("expected 8 meta tags, got %d", len(metas))
	}
	if v, _ := GetAttr(metas[0], "property"); v != "og:description" {
		t.Errorf("expected document order, first was %s", v)
	}
	if v, _ := GetAttr(metas[7], "property"); v != "custom" {
		t.Errorf("expected document order, last was %s", v)
	}
}

func TestGetAndSetAttr(t *testing.T) {
	doc := mustParse(t, sampleDocument)
	div := FindByID(doc, "hello")

	tests := []struct {
		name     string
		key      string
		value    string
		expected bool
	}{
		{"existing attribute", "id", "world", true},
		{"absent attribute", "class", "added", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SetAttr(div, tt.key, tt.value); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
			value, ok := GetAttr(div, tt.key)
			if ok != tt.expected {
				t.Errorf("expected presence %v, got %v", tt.expected, ok)
			}
			if ok && value != tt.value {
				t.Errorf("expected %s, got %s", tt.value, value)
			}
		})
	}
}

func TestReplaceChildren(t *testing.T) {
	doc := mustParse(t, `<div id="target"><p>old</p><p>older</p></div>`)
	target := FindByID(doc, "target")

	first := NewText("one")
	second := NewScript("/x.js")
	ReplaceChildren(target, []*html.Node{first, second})

	children := Children(target)
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0] != first || children[1] != second {
		t.Error("expected children in the given order")
	}

	ReplaceChildren(target, nil)
	if target.FirstChild != nil {
		t.Error("expected no children after clearing")
	}
}

func TestReplaceChildrenDetachesNodes(t *testing.T) {
	doc := mustParse(t, `<div id="a"><span>moved</span></div><div id="b"></div>`)
	a := FindByID(doc, "a")
	b := FindByID(doc, "b")

	ReplaceChildren(b, Children(a))

	if a.FirstChild != nil {
		t.Error("expected source to lose its child")
	}
	if b.FirstChild == nil || b.FirstChild.Data != "span" {
		t.Error("expected span to move to target")
	}
}

func TestExtractContentsOfDocument(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Test</title></head><body><div><p>Hello, World!</p></div></body></html>`)

	contents := ExtractContents(doc)
	if len(contents) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(contents))
	}
	if contents[0].Data != "head" || contents[1].Data != "body" {
		t.Errorf("expected head and body, got %s and %s", contents[0].Data, contents[1].Data)
	}
}

func TestRender(t *testing.T) {
	doc := mustParse(t, `<html><head><title>Test</title></head><body><div><p id="hello">Hello, World!</p></div></body></html>`)
	ReplaceChildren(FindByID(doc, "hello"), []*html.Node{NewText("Good bye!")})

	got, err := Render(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := `<html><head><title>Test</title></head><body><div><p id="hello">Good bye!</p></div></body></html>`
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestNewScript(t *testing.T) {
	got, err := Render(NewScript("https://example.com/a.js"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `<script src="https://example.com/a.js"></script>` {
		t.Errorf("unexpected script rendering: %s", got)
	}
}
