package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		contentType string
		present     bool
		expected    ContentKind
	}{
		{"", false, KindHTML},
		{"text/html", true, KindHTML},
		{"text/html; charset=utf-8", true, KindHTML},
		{"application/json", true, KindJSON},
		{"application/json; charset=utf-8", true, KindJSON},
		{"application/xml", true, KindUnknown},
		{"text/plain", true, KindUnknown},
		{"", true, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := Classify(tt.contentType, tt.present); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLoadForward(t *testing.T) {
	tests := []struct {
		name         string
		contentType  []string
		body         string
		expectedKind ContentKind
	}{
		{"html", []string{"text/html; charset=utf-8"}, "<p>hi</p>", KindHTML},
		{"json", []string{"application/json"}, `{"a":"b"}`, KindJSON},
		{"no content type", nil, "<p>bare</p>", KindHTML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header()["Content-Type"] = tt.contentType
				w.Header().Set("X-Upstream", "yes")
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer upstream.Close()

			outcome := New().Load(context.Background(), upstream.URL+"/page", nil, "")
			forward, ok := outcome.(Forward)
			if !ok {
				t.Fatalf("expected Forward, got %#v", outcome)
			}
			if forward.Status != http.StatusCreated {
				t.Errorf("expected status 201, got %d", forward.Status)
			}
			if forward.Kind != tt.expectedKind {
				t.Errorf("expected kind %v, got %v", tt.expectedKind, forward.Kind)
			}
			if forward.Body != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, forward.Body)
			}
			if forward.Header.Get("X-Upstream") != "yes" {
				t.Error("expected upstream headers to be carried")
			}
		})
	}
}

func TestLoadUnsupportedContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<a/>"))
	}))
	defer upstream.Close()

	outcome := New().Load(context.Background(), upstream.URL, nil, "")
	special, ok := outcome.(Special)
	if !ok {
		t.Fatalf("expected Special, got %#v", outcome)
	}
	if special.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", special.Status)
	}
	if !errors.Is(special.Err, ErrUnsupportedContentType) {
		t.Errorf("expected ErrUnsupportedContentType, got %v", special.Err)
	}
}

func TestLoadTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer upstream.Close()
	defer close(release)

	outcome := New(WithTimeout(50*time.Millisecond)).Load(context.Background(), upstream.URL, nil, "")
	special, ok := outcome.(Special)
	if !ok {
		t.Fatalf("expected Special, got %#v", outcome)
	}
	if special.Status != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", special.Status)
	}
	if !errors.Is(special.Err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", special.Err)
	}
}

func TestLoadTransportError(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	outcome := New().Load(context.Background(), url, nil, "")
	special, ok := outcome.(Special)
	if !ok {
		t.Fatalf("expected Special, got %#v", outcome)
	}
	if special.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", special.Status)
	}
	if !errors.Is(special.Err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", special.Err)
	}
}

func TestLoadBodyReadFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("<p>short"))
	}))
	defer upstream.Close()

	outcome := New().Load(context.Background(), upstream.URL, nil, "")
	special, ok := outcome.(Special)
	if !ok {
		t.Fatalf("expected Special, got %#v", outcome)
	}
	if special.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", special.Status)
	}
	if !errors.Is(special.Err, ErrBodyRead) {
		t.Errorf("expected ErrBodyRead, got %v", special.Err)
	}
}

func TestLoadSendsHeadersAndHost(t *testing.T) {
	var gotHost, gotUA, gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotUA = r.Header.Get("User-Agent")
		gotPath = r.URL.RequestURI()
		w.Header().Set("Content-Type", "text/html")
	}))
	defer upstream.Close()

	header := http.Header{}
	header.Set("User-Agent", "test-agent")
	New().Load(context.Background(), upstream.URL+"/foo?x=1", header, "origin.example")

	if gotHost != "origin.example" {
		t.Errorf("expected host origin.example, got %s", gotHost)
	}
	if gotUA != "test-agent" {
		t.Errorf("expected user agent test-agent, got %s", gotUA)
	}
	if gotPath != "/foo?x=1" {
		t.Errorf("expected path /foo?x=1, got %s", gotPath)
	}
}

func TestLoadFollowsRedirects(t *testing.T) {
	var finalHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/final" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		finalHost = r.Host
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>final</p>"))
	}))
	defer upstream.Close()

	outcome := New().Load(context.Background(), upstream.URL+"/start", nil, "origin.example")
	forward, ok := outcome.(Forward)
	if !ok {
		t.Fatalf("expected Forward, got %#v", outcome)
	}
	if forward.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", forward.Status)
	}
	if forward.Body != "<p>final</p>" {
		t.Errorf("expected final body, got %q", forward.Body)
	}
	if forward.Header.Get("Location") != "" {
		t.Errorf("expected no Location header, got %q", forward.Header.Get("Location"))
	}
	if finalHost != "origin.example" {
		t.Errorf("expected Host to survive the redirect, got %q", finalHost)
	}
}

func TestLoadEmptyBody(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"ok", http.StatusOK},
		{"no content", http.StatusNoContent},
		{"found without location", http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(tt.status)
			}))
			defer upstream.Close()

			outcome := New().Load(context.Background(), upstream.URL, nil, "")
			forward, ok := outcome.(Forward)
			if !ok {
				t.Fatalf("expected Forward, got %#v", outcome)
			}
			if forward.Status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, forward.Status)
			}
			if forward.Body != "" {
				t.Errorf("expected empty body, got %q", forward.Body)
			}
		})
	}
}

func TestLoadDecodesContentEncoding(t *testing.T) {
	const body = "<p>compressed</p>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(body))
	_ = gw.Close()

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zst := zw.EncodeAll([]byte(body), nil)
	_ = zw.Close()

	tests := []struct {
		name     string
		encoding string
		payload  []byte
	}{
		{"gzip", "gzip", gz.Bytes()},
		{"zstd", "zstd", zst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Header().Set("Content-Encoding", tt.encoding)
				_, _ = w.Write(tt.payload)
			}))
			defer upstream.Close()

			header := http.Header{}
			header.Set("Accept-Encoding", tt.encoding)
			outcome := New().Load(context.Background(), upstream.URL, header, "")
			forward, ok := outcome.(Forward)
			if !ok {
				t.Fatalf("expected Forward, got %#v", outcome)
			}
			if forward.Body != body {
				t.Errorf("expected %q, got %q", body, forward.Body)
			}
		})
	}
}

func TestLoadDecodesCharset(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte{'<', 'p', '>', 0xE9, '<', '/', 'p', '>'})
	}))
	defer upstream.Close()

	outcome := New().Load(context.Background(), upstream.URL, nil, "")
	forward, ok := outcome.(Forward)
	if !ok {
		t.Fatalf("expected Forward, got %#v", outcome)
	}
	if forward.Body != "<p>é</p>" {
		t.Errorf("expected UTF-8 body, got %q", forward.Body)
	}
	if forward.Charset != "windows-1252" {
		t.Errorf("expected windows-1252, got %q", forward.Charset)
	}
}

func TestNarrowAcceptEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gzip, deflate, br, zstd", "gzip, deflate, zstd"},
		{"br", ""},
		{"gzip;q=1.0, *;q=0.5", "gzip;q=1.0"},
		{"identity", "identity"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NarrowAcceptEncoding(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
