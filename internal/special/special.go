// Package special builds the fallback responses served when the upstream
// cannot be fetched or its body cannot be transformed.
package special

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Style selects how fallback pages look.
type Style string

const (
	// StyleNone answers with the status line as plain text.
	StyleNone Style = "none"
	// StyleNginx imitates the default nginx error page.
	StyleNginx Style = "nginx"
)

// ContentTypeHTML is forced on nginx-style pages.
const ContentTypeHTML = "text/html; charset=utf-8"

// ParseStyle maps a configured style name to a Style. Anything other than
// "nginx" selects StyleNone.
func ParseStyle(s string) Style {
	if strings.EqualFold(strings.TrimSpace(s), string(StyleNginx)) {
		return StyleNginx
	}
	return StyleNone
}

// Page is a fallback response.
type Page struct {
	Status int
	// ContentType is empty when the style does not force one.
	ContentType string
	Body        string
}

// Build returns the fallback page for status in the given style.
func Build(status int, style Style) Page {
	if style == StyleNginx {
		return Page{
			Status:      status,
			ContentType: ContentTypeHTML,
			Body:        nginxPage(status),
		}
	}
	return Page{Status: status, Body: statusLine(status)}
}

// Write sends p to w, including headers already set on w.
func (p Page) Write(w http.ResponseWriter) {
	if p.ContentType != "" {
		w.Header().Set("Content-Type", p.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(p.Body)))
	w.WriteHeader(p.Status)
	_, _ = w.Write([]byte(p.Body))
}

func statusLine(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%d %s", status, text)
	}
	return strconv.Itoa(status)
}

// nginxPhrases holds the status lines nginx prints on its error pages.
var nginxPhrases = map[int]string{
	http.StatusBadRequest:              "400 Bad Request",
	http.StatusUnauthorized:            "401 Authorization Required",
	http.StatusForbidden:               "403 Forbidden",
	http.StatusNotFound:                "404 Not Found",
	http.StatusMethodNotAllowed:        "405 Not Allowed",
	http.StatusRequestTimeout:          "408 Request Time-out",
	http.StatusRequestEntityTooLarge:   "413 Request Entity Too Large",
	http.StatusRequestURITooLong:       "414 Request-URI Too Large",
	http.StatusTooManyRequests:         "429 Too Many Requests",
	http.StatusInternalServerError:     "500 Internal Server Error",
	http.StatusNotImplemented:          "501 Not Implemented",
	http.StatusBadGateway:              "502 Bad Gateway",
	http.StatusServiceUnavailable:      "503 Service Temporarily Unavailable",
	http.StatusGatewayTimeout:          "504 Gateway Time-out",
	http.StatusHTTPVersionNotSupported: "505 HTTP Version Not Supported",
	http.StatusInsufficientStorage:     "507 Insufficient Storage",
}

const paddingComment = "<!-- a padding to disable MSIE and Chrome friendly error page -->\n"

func nginxPage(status int) string {
	phrase, ok := nginxPhrases[status]
	if !ok {
		phrase = strconv.Itoa(status)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<html>\n<head><title>%s</title></head>\n<body>\n", phrase)
	fmt.Fprintf(&b, "<center><h1>%s</h1></center>\n", phrase)
	b.WriteString("<hr><center>nginx</center>\n</body>\n</html>\n")
	b.WriteString(strings.Repeat(paddingComment, 6))
	return b.String()
}
