package transform

import (
	"fmt"

	"golang.org/x/net/html"

	"miragend/internal/dom"
	"miragend/internal/fetch"
	"miragend/internal/jsonvalue"
	"miragend/internal/obfuscate"
)

// Codec parses a body into a document of type T and renders it back.
type Codec[T any] struct {
	Parse  func(body string) (T, error)
	Render func(doc T) (string, error)
}

// HTMLCodec is backed by golang.org/x/net/html.
var HTMLCodec = Codec[*html.Node]{
	Parse:  dom.ParseDocument,
	Render: dom.Render,
}

// JSONCodec keeps object member order.
var JSONCodec = Codec[*jsonvalue.Value]{
	Parse:  jsonvalue.Parse,
	Render: jsonvalue.Serialize,
}

// Dispatcher routes an upstream body through the walker of the active
// strategy. It holds only read-only state and is safe for concurrent use.
type Dispatcher struct {
	codec        *obfuscate.Codec
	rules        ObfuscationRules
	injectScript string

	html Codec[*html.Node]
	json Codec[*jsonvalue.Value]
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithInjectedScript appends <script src="src"> to the head of every HTML
// page, whatever the strategy.
func WithInjectedScript(src string) DispatcherOption {
	return func(d *Dispatcher) {
		d.injectScript = src
	}
}

// WithHTMLCodec replaces the HTML parser and renderer.
func WithHTMLCodec(c Codec[*html.Node]) DispatcherOption {
	return func(d *Dispatcher) {
		d.html = c
	}
}

// WithJSONCodec replaces the JSON parser and renderer.
func WithJSONCodec(c Codec[*jsonvalue.Value]) DispatcherOption {
	return func(d *Dispatcher) {
		d.json = c
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(codec *obfuscate.Codec, rules ObfuscationRules, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		codec: codec,
		rules: rules,
		html:  HTMLCodec,
		json:  JSONCodec,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Transform rewrites body of the given kind according to strategy.
func (d *Dispatcher) Transform(kind fetch.ContentKind, body string, strategy Strategy) (string, error) {
	switch kind {
	case fetch.KindHTML:
		return process(body, d.html, func(doc *html.Node) {
			d.transformHTML(doc, strategy)
		})
	case fetch.KindJSON:
		if _, ok := strategy.(*Patch); ok {
			// JSON bodies cannot be patched; they pass through once
			// they are known to be valid.
			if _, err := d.json.Parse(body); err != nil {
				return "", fmt.Errorf("%w: %w", ErrParse, err)
			}
			return body, nil
		}
		return process(body, d.json, func(v *jsonvalue.Value) {
			ObfuscateJSON(v, d.codec)
		})
	default:
		return "", fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
}

func (d *Dispatcher) transformHTML(doc *html.Node, strategy Strategy) {
	switch s := strategy.(type) {
	case *Patch:
		PatchDocument(doc, s)
	case *Obfuscation:
		ObfuscateDocument(doc, d.codec, &d.rules)
	}

	if d.injectScript != "" {
		InjectScript(doc, d.injectScript)
	}
}

// process parses body, applies apply to the document and renders it back.
func process[T any](body string, codec Codec[T], apply func(T)) (string, error) {
	doc, err := codec.Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	apply(doc)

	out, err := codec.Render(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerialize, err)
	}
	return out, nil
}
