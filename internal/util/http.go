package util

import (
	"bufio"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Headers a browser sends for a top level page load. Accept-Encoding is
// set explicitly so brotli bodies are requested; the fetcher decodes them.
var browserHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Accept-Encoding": "gzip, deflate, br",
}

type HTTPClientOptions struct {
	Timeout     time.Duration
	UserAgent   string
	Cookie      string
	CookieFile  string
	Transport   http.RoundTripper
	DebugLogger interface {
		Debugf(string, ...any)
	}

	// CloudflareBypass wraps the transport with browser-like TLS and
	// header settings that pass the basic Cloudflare checks.
	CloudflareBypass bool
}

// NewHTTPClient builds the client shared by every fetch of a run. The
// per-request timeout is enforced by the fetcher through the context;
// Timeout here is the outer bound.
func NewHTTPClient(opts HTTPClientOptions) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	base := opts.Transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	if opts.CloudflareBypass {
		base = cloudflarebp.AddCloudFlareByPass(base)
	}

	cookies, err := joinCookies(opts.Cookie, opts.CookieFile)
	if err != nil {
		return nil, err
	}

	if opts.DebugLogger != nil {
		opts.DebugLogger.Debugf("HTTP client initialized (timeout=%s, ua=%q, cookies=%d, cloudflare=%t)",
			opts.Timeout, opts.UserAgent, strings.Count(cookies, "="), opts.CloudflareBypass)
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Jar:     jar,
		Transport: roundTripper{
			base:    base,
			ua:      opts.UserAgent,
			cookies: cookies,
		},
	}, nil
}

type roundTripper struct {
	base    http.RoundTripper
	ua      string
	cookies string
}

// RoundTrip fills in browser headers the caller left unset.
func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if rt.ua != "" {
		req.Header.Set("User-Agent", rt.ua)
	}
	for k, v := range browserHeaders {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if rt.cookies != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", rt.cookies)
	}

	return rt.base.RoundTrip(req)
}

// joinCookies merges the inline cookie string with the cookie file. The
// file is either a single header line or a Netscape cookies.txt export.
func joinCookies(inline, file string) (string, error) {
	var parts []string
	if s := strings.TrimSpace(inline); s != "" {
		parts = append(parts, s)
	}
	if file == "" {
		return strings.Join(parts, "; "), nil
	}

	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// domain, subdomains, path, secure, expiry, name, value
		if fields := strings.Split(line, "\t"); len(fields) == 7 {
			parts = append(parts, fields[5]+"="+fields[6])
			continue
		}

		parts = append(parts, line)
		break
	}

	return strings.Join(parts, "; "), sc.Err()
}

func PickUserAgent(override string) string {
	if override != "" {
		return override
	}
	return defaultUserAgent
}
