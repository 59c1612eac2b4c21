package transform

import (
	"slices"

	"golang.org/x/net/html"

	"miragend/internal/dom"
	"miragend/internal/jsonvalue"
	"miragend/internal/obfuscate"
)

// htmlObfuscator carries the walk state across the whole document.
type htmlObfuscator struct {
	codec *obfuscate.Codec
	rules *ObfuscationRules

	titleExempted bool
	// preserving becomes true at the IgnoreAfterNode element and stays
	// true for the rest of the document.
	preserving bool
	remaining  int
}

// ObfuscateDocument obfuscates the text nodes of doc and the content of
// the meta tags selected by rules.MetaTags.
func ObfuscateDocument(doc *html.Node, codec *obfuscate.Codec, rules *ObfuscationRules) {
	w := &htmlObfuscator{
		codec:     codec,
		rules:     rules,
		remaining: rules.IgnoreLength,
	}
	w.walk(doc)

	obfuscateMetaTags(doc, codec, rules)
}

func (w *htmlObfuscator) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.text(n, c)
		case html.DocumentNode:
			w.walk(c)
		case html.ElementNode:
			if id, ok := dom.GetAttr(c, "id"); ok {
				if w.rules.ignoresNode(id) {
					continue
				}
				if w.rules.startsPreserving(id) {
					w.preserving = true
				}
			}
			if slices.Contains(skipTags, c.Data) {
				continue
			}
			w.walk(c)
		}
	}
}

func (w *htmlObfuscator) text(parent, n *html.Node) {
	if w.rules.IgnoreTitle && !w.titleExempted &&
		parent.Type == html.ElementNode && parent.Data == "title" {
		w.titleExempted = true
		return
	}

	if w.preserving && w.remaining > 0 {
		n.Data, w.remaining = w.codec.StringPreservingHead(n.Data, w.remaining)
		return
	}
	n.Data = w.codec.String(n.Data)
}

// obfuscateMetaTags rewrites the content attribute of every <meta> whose
// name or property is listed in rules.MetaTags.
func obfuscateMetaTags(doc *html.Node, codec *obfuscate.Codec, rules *ObfuscationRules) {
	for _, meta := range dom.FindAllMeta(doc) {
		for _, key := range []string{"name", "property"} {
			v, ok := dom.GetAttr(meta, key)
			if !ok || !rules.includesMeta(v) {
				continue
			}
			if content, ok := dom.GetAttr(meta, "content"); ok {
				dom.SetAttr(meta, "content", codec.String(content))
			}
			break
		}
	}
}

// ObfuscateJSON obfuscates every string leaf of v in place. Object keys and
// non-string scalars are left unchanged.
func ObfuscateJSON(v *jsonvalue.Value, codec *obfuscate.Codec) {
	if v == nil {
		return
	}
	switch v.Kind {
	case jsonvalue.String:
		v.String = codec.String(v.String)
	case jsonvalue.Array:
		for _, elem := range v.Array {
			ObfuscateJSON(elem, codec)
		}
	case jsonvalue.Object:
		for _, m := range v.Members {
			ObfuscateJSON(m.Value, codec)
		}
	}
}
