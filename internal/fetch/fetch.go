// Package fetch loads a page from the upstream origin and classifies the
// result as either a body to transform or a proxy-level status.
//
// The two suspension points, sending the request and reading the body, are
// bounded by one timeout. Nothing is retried: every failure is terminal for
// the request and maps onto a status code:
//
//	timeout                                  504 Gateway Timeout
//	transport error, unsupported type, body  502 Bad Gateway
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a whole upstream exchange when no timeout is set.
const DefaultTimeout = 60 * time.Second

// ContentKind is the classification of an upstream body.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindHTML
	KindJSON
)

func (k ContentKind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Outcome is either Special or Forward.
type Outcome interface {
	outcome()
}

// Special means no body is forwarded; the proxy answers with Status.
type Special struct {
	Status int
	// Err is the reason, one of the package's sentinel errors, possibly
	// wrapped.
	Err error
}

// Forward carries an upstream response whose body can be transformed.
type Forward struct {
	Status int
	// Header is the upstream header, unfiltered.
	Header http.Header
	Kind   ContentKind
	Body   string
	// Charset names the encoding Body was decoded from. Body itself is
	// always UTF-8.
	Charset string
}

func (Special) outcome() {}
func (Forward) outcome() {}

// Fetcher issues GET requests against the upstream.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds the request and the body read together.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// New creates a Fetcher. Redirects are followed and the final response is
// returned, so an absolute upstream Location never reaches the browser.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load fetches url with the given outbound header. host, when not empty,
// is sent as the Host header.
func (f *Fetcher) Load(ctx context.Context, url string, header http.Header, host string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Error("Failed to build upstream request", "url", url, "error", err)
		return Special{Status: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	req.Header = header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if host != "" {
		req.Host = host
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Warn("Upstream request timed out", "url", url, "timeout", f.timeout)
			return Special{Status: http.StatusGatewayTimeout, Err: ErrTimeout}
		}
		slog.Error("Upstream request failed", "url", url, "error", err)
		return Special{Status: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	kind := Classify(contentType, len(resp.Header.Values("Content-Type")) > 0)
	if kind == KindUnknown {
		slog.Error("Response content-type is not supported", "url", url, "content_type", contentType)
		return Special{Status: http.StatusBadGateway, Err: ErrUnsupportedContentType}
	}

	body, name, err := readBody(resp, contentType)
	if err != nil {
		slog.Error("Failed to read response body", "url", url, "error", err)
		return Special{Status: http.StatusBadGateway, Err: fmt.Errorf("%w: %v", ErrBodyRead, err)}
	}

	return Forward{
		Status: resp.StatusCode,
		Header: resp.Header,
		Kind:    kind,
		Body:    body,
		Charset: name,
	}
}

// Classify maps a Content-Type value onto a ContentKind. A missing header
// is treated as HTML.
func Classify(contentType string, present bool) ContentKind {
	switch {
	case !present:
		return KindHTML
	case strings.HasPrefix(contentType, "text/html"):
		return KindHTML
	case strings.HasPrefix(contentType, "application/json"):
		return KindJSON
	default:
		return KindUnknown
	}
}

// readBody returns the body as UTF-8 together with the name of the charset
// it was decoded from. An empty body is a successful read.
func readBody(resp *http.Response, contentType string) (string, string, error) {
	var encoding string
	if !resp.Uncompressed {
		encoding = resp.Header.Get("Content-Encoding")
	}
	decoded, err := decodeContent(resp.Body, encoding)
	if err != nil {
		return "", "", err
	}
	defer decoded.Close()

	raw, err := io.ReadAll(decoded)
	if err != nil {
		return "", "", err
	}

	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if name == "utf-8" || len(raw) == 0 {
		return string(raw), name, nil
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return string(text), name, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
