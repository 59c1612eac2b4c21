package proxy

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"miragend/internal/special"
)

// ServeHTTP answers GET and HEAD requests through Transform and logs one
// line per request. Other methods get a 405 fallback page.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := p.current()
	requestURI := r.URL.RequestURI()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		page := special.Build(http.StatusMethodNotAllowed, st.style)
		w.Header().Set("Allow", "GET, HEAD")
		page.Write(w)
		st.logRoute(r, requestURI, page.Status)
		return
	}

	resp := st.transform(r.Context(), r.Header, requestURI)
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		if _, err := w.Write([]byte(resp.Body)); err != nil {
			slog.Error("Failed to write response body", "path", requestURI, "error", err)
		}
	}
	st.logRoute(r, requestURI, resp.Status)
}

func (s *state) logRoute(r *http.Request, requestURI string, status int) {
	slog.Info("Routed",
		"status", status,
		"method", r.Method,
		"path", requestURI,
		"upstream", s.upstreamURL(requestURI),
		"client_ip", clientIP(r),
		"user_agent", r.UserAgent(),
		"referer", referer(r),
	)
}

// clientIP returns the first X-Forwarded-For entry, or the connection's
// remote address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func referer(r *http.Request) string {
	if ref := r.Referer(); ref != "" {
		return ref
	}
	return "-"
}
