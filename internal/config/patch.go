package config

import (
	"bytes"
	_ "embed"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	//go:embed fallback/patch.md
	fallbackPatchMarkdown string
	//go:embed fallback/patch.html
	fallbackPatchHTML string
)

const fallbackPatchText = "Hello from Miragend!"

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ResolvePatchHTML returns the markup patched into pages. Literal content
// wins. Otherwise the file is read according to its extension: .md is
// rendered from Markdown, .html is used as is and anything else becomes one
// paragraph per line. A file that cannot be read is replaced by built-in
// content of the same kind, and no file at all means the built-in Markdown.
func ResolvePatchHTML(content, file string) string {
	if content != "" {
		return content
	}
	if file == "" {
		return renderMarkdown(fallbackPatchMarkdown)
	}

	data, err := os.ReadFile(file) //nolint:gosec // user-provided patch file
	if err != nil {
		slog.Warn("Failed to read patch content file, using built-in content", "path", file, "error", err)
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".md":
		if err != nil {
			return renderMarkdown(fallbackPatchMarkdown)
		}
		return renderMarkdown(string(data))
	case ".html":
		if err != nil {
			return fallbackPatchHTML
		}
		return string(data)
	default:
		if err != nil {
			return paragraphs(fallbackPatchText)
		}
		return paragraphs(string(data))
	}
}

func renderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		slog.Warn("Failed to render patch Markdown, using it as text", "error", err)
		return paragraphs(source)
	}
	return buf.String()
}

// paragraphs wraps every line of text in its own <p>.
func paragraphs(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(text, "\r\n"), "\n") {
		b.WriteString("\n<p>")
		b.WriteString(html.EscapeString(strings.TrimSuffix(line, "\r")))
		b.WriteString("</p>")
	}
	return b.String()
}
