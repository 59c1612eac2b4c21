// Package log sets up the process logger. Every handler it builds is wrapped
// in a SecureHandler, because route logs carry values copied from inbound
// request headers and URLs.
package log

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces redacted values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-csrf-token":        true,
}

// sensitiveKeywords mark a key or query parameter as sensitive when they
// appear anywhere in its lower-cased name.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential",
	"session", "apikey", "api_key", "signature",
}

// sensitivePatterns match values that are credentials whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// urlKeys hold request paths or URLs; their query strings are scrubbed
// parameter by parameter instead of masking the whole value.
var urlKeys = map[string]bool{
	"path":     true,
	"url":      true,
	"upstream": true,
	"referer":  true,
}

// SecureHandler wraps an slog.Handler and masks sensitive attributes before
// they reach it.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler. A nil handler wraps slog.Default's.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	key := strings.ToLower(a.Key)
	if isSensitiveKey(key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() != slog.KindString {
		return a
	}

	value := a.Value.String()
	if isSensitiveValue(value) {
		return slog.String(a.Key, MaskValue)
	}
	if urlKeys[key] {
		return slog.String(a.Key, scrubQuery(value))
	}
	return a
}

func isSensitiveKey(key string) bool {
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// scrubQuery masks the values of sensitive query parameters in a path or
// URL. Values that do not parse are returned unchanged.
func scrubQuery(raw string) string {
	before, query, ok := strings.Cut(raw, "?")
	if !ok || query == "" {
		return raw
	}
	fragment := ""
	if i := strings.IndexByte(query, '#'); i >= 0 {
		query, fragment = query[:i], query[i:]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return raw
	}
	changed := false
	for name, values := range params {
		if !isSensitiveKey(strings.ToLower(name)) {
			continue
		}
		for i := range values {
			values[i] = MaskValue
		}
		changed = true
	}
	if !changed {
		return raw
	}
	return before + "?" + params.Encode() + fragment
}
