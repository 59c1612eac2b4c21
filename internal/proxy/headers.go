package proxy

import (
	"mime"
	"net/http"
	"strings"

	"miragend/internal/fetch"
)

// droppedResponseHeaders no longer describe the body once it is rewritten,
// or belong to the upstream connection.
var droppedResponseHeaders = []string{
	"Connection",
	"Content-Length",
	"Content-Encoding",
	"ETag",
	"Last-Modified",
	"Transfer-Encoding",
}

// OutboundHeader copies the inbound header for the upstream request.
// Accept-Encoding is narrowed to the codings the fetcher can decode; Host
// is carried separately.
func OutboundHeader(inbound http.Header) http.Header {
	header := inbound.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Del("Host")

	if values := header.Values("Accept-Encoding"); len(values) > 0 {
		header.Del("Accept-Encoding")
		for _, v := range values {
			if narrowed := fetch.NarrowAcceptEncoding(v); narrowed != "" {
				header.Add("Accept-Encoding", narrowed)
			}
		}
	}
	return header
}

// ResponseHeader copies the upstream header for the client without the
// headers the rewrite invalidates. The body is always sent as UTF-8, so a
// body decoded from another charset gets its Content-Type charset replaced.
func ResponseHeader(upstream http.Header, charset string) http.Header {
	header := upstream.Clone()
	if header == nil {
		header = make(http.Header)
	}
	for _, name := range droppedResponseHeaders {
		header.Del(name)
	}
	if charset != "" && charset != "utf-8" {
		header.Set("Content-Type", utf8ContentType(header.Get("Content-Type")))
	}
	return header
}

// utf8ContentType sets the charset parameter of value to utf-8. A missing
// media type means HTML.
func utf8ContentType(value string) string {
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		mediaType, _, _ = strings.Cut(value, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
		params = make(map[string]string)
	}
	if mediaType == "" {
		mediaType = "text/html"
	}
	params["charset"] = "utf-8"
	if formatted := mime.FormatMediaType(mediaType, params); formatted != "" {
		return formatted
	}
	return mediaType + "; charset=utf-8"
}
