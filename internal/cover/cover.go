// Package cover turns the configured cover source into image bytes for
// packaging. A cover that cannot be resolved is never an error.
package cover

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/brogergvhs/noveld/internal/config"
)

var dataURL = regexp.MustCompile(`^data:(image/[A-Za-z0-9.+-]+);base64,(.+)$`)

var ErrNotDataURL = errors.New("not a base64 image data URL")

type Image struct {
	Data      []byte
	MediaType string
}

// DataURL encodes the image as a base64 data URL.
func (i *Image) DataURL() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Ext is the file extension matching the media type.
func (i *Image) Ext() string {
	switch i.MediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	}
	if exts, _ := mime.ExtensionsByType(i.MediaType); len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

// DecodeDataURL decodes a data:image/...;base64, URL.
func DecodeDataURL(s string) (*Image, error) {
	m := dataURL.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, err
	}
	return &Image{Data: data, MediaType: strings.ToLower(m[1])}, nil
}

type Fetcher interface {
	FetchBinary(ctx context.Context, proxy, target string, timeout time.Duration) ([]byte, string, error)
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type Resolver struct {
	fetcher Fetcher
	log     Logger
}

func NewResolver(f Fetcher, log Logger) *Resolver {
	return &Resolver{fetcher: f, log: log}
}

// Resolve prefers inline base64 data over cover.url. It returns nil when
// there is no cover or it could not be loaded.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config) *Image {
	if inline := cfg.Cover.Base64; inline != "" {
		img, err := DecodeDataURL(inline)
		if err == nil {
			return img
		}
		r.log.Warnf("Ignoring inline cover: %v", err)
	}

	if cfg.Cover.URL == "" {
		return nil
	}

	data, contentType, err := r.fetcher.FetchBinary(ctx, cfg.Network.ProxyURL, cfg.Cover.URL, cfg.Network.Timeout)
	if err != nil {
		r.log.Warnf("Could not fetch cover %s: %v", cfg.Cover.URL, err)
		return nil
	}

	mt := mediaType(contentType, data)
	if !strings.HasPrefix(mt, "image/") {
		r.log.Warnf("Cover %s is %s, not an image", cfg.Cover.URL, mt)
		return nil
	}

	r.log.Debugf("Cover loaded: %s (%d bytes)", mt, len(data))
	return &Image{Data: data, MediaType: mt}
}

func mediaType(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
