// Package transform rewrites upstream bodies according to the active
// strategy: patching marked regions of an HTML page, or obfuscating the
// human-readable text of HTML and JSON bodies.
package transform

import (
	"slices"
)

// Strategy is either *Patch or *Obfuscation.
type Strategy interface {
	strategy()
}

// Patch replaces and removes marked regions of an HTML page.
type Patch struct {
	// Target is the id of the element whose children are replaced.
	Target string
	// Content is the replacement HTML, parsed as a fragment per request.
	Content string
	// RemoveNodes lists ids of elements that are emptied.
	RemoveNodes []string
	// RemoveMetaTags lists meta name/property values removed from <head>.
	RemoveMetaTags []string
}

// Obfuscation randomizes visible text using the dispatcher's codec and
// rules.
type Obfuscation struct{}

func (*Patch) strategy()       {}
func (*Obfuscation) strategy() {}

// Strategy names accepted in configuration.
const (
	NamePatch            = "patch"
	NameObfuscation      = "obfuscation"
	NameObfuscationShort = "obfus"
)

// ObfuscationRules controls which parts of an HTML document are obfuscated.
// Tags and ids listed here are opt-out; MetaTags is opt-in.
type ObfuscationRules struct {
	// MetaTags lists meta name/property values whose content is obfuscated.
	MetaTags []string
	// IgnoreNodes lists ids of elements whose subtrees are left alone.
	IgnoreNodes []string
	// IgnoreTitle leaves the first <title> text untouched.
	IgnoreTitle bool
	// IgnoreAfterNode is the id of the element from which the first
	// IgnoreLength non-whitespace characters are preserved.
	IgnoreAfterNode string
	IgnoreLength    int
}

// skipTags are never descended into.
var skipTags = []string{"script", "noscript", "style", "template", "iframe"}

func (r *ObfuscationRules) ignoresNode(id string) bool {
	return slices.Contains(r.IgnoreNodes, id)
}

func (r *ObfuscationRules) startsPreserving(id string) bool {
	return r.IgnoreAfterNode != "" && id == r.IgnoreAfterNode
}

func (r *ObfuscationRules) includesMeta(value string) bool {
	return slices.Contains(r.MetaTags, value)
}
