package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// supportedEncodings are the content codings decodeContent understands.
var supportedEncodings = map[string]bool{
	"gzip":     true,
	"x-gzip":   true,
	"deflate":  true,
	"zstd":     true,
	"identity": true,
}

// NarrowAcceptEncoding drops the codings this package cannot decode from
// an Accept-Encoding value. The result is empty when nothing is left.
func NarrowAcceptEncoding(value string) string {
	var kept []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		coding, _, _ := strings.Cut(part, ";")
		if supportedEncodings[strings.ToLower(strings.TrimSpace(coding))] {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}

// decodeContent wraps r so that reads return the decoded body.
func decodeContent(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return nopCloser{r}, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open deflate body: %w", err)
		}
		return zr, nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd body: %w", err)
		}
		return zstdCloser{zr}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
