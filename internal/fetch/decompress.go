package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// decompress undoes a Content-Encoding the transport left in place. This
// happens when a proxy forwards the upstream encoding header verbatim or
// when the request set Accept-Encoding explicitly.
func decompress(body []byte, encoding string) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(encoding))

	// gzip is detected by magic bytes even when the header is missing
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		enc = "gzip"
	}

	var r io.Reader
	switch enc {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	case "deflate":
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		r = fr
	default:
		return body, nil
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", enc, err)
	}

	return out, nil
}
