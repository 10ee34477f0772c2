package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTimeout = 30 * time.Second

type Logger interface {
	Debugf(format string, args ...any)
}

// Fetcher issues GET requests through an optional proxy. Identical requests
// that overlap in time share one network call; nothing is cached once a
// call settles.
type Fetcher struct {
	client *http.Client
	log    Logger
	group  singleflight.Group
	now    func() time.Time
}

func New(client *http.Client, log Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, log: log, now: time.Now}
}

type response struct {
	body        []byte
	contentType string
}

// FetchHTML returns the body of target as text.
func (f *Fetcher) FetchHTML(ctx context.Context, proxy, target string, timeout time.Duration) (string, error) {
	res, err := f.get(ctx, proxy, target, timeout)
	if err != nil {
		return "", err
	}
	return string(res.body), nil
}

// FetchJSON returns the decoded JSON value at target.
func (f *Fetcher) FetchJSON(ctx context.Context, proxy, target string, timeout time.Duration) (any, error) {
	res, err := f.get(ctx, proxy, target, timeout)
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(res.body, &v); err != nil {
		return nil, &FetchError{
			Kind:    KindParse,
			Message: fmt.Sprintf("Failed to parse JSON from %s: %v", target, err),
			Err:     err,
		}
	}

	return v, nil
}

// FetchBinary returns the raw body and its declared content type.
func (f *Fetcher) FetchBinary(ctx context.Context, proxy, target string, timeout time.Duration) ([]byte, string, error) {
	res, err := f.get(ctx, proxy, target, timeout)
	if err != nil {
		return nil, "", err
	}
	return res.body, res.contentType, nil
}

func (f *Fetcher) get(ctx context.Context, proxy, target string, timeout time.Duration) (*response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	fetchURL := BuildProxyURL(proxy, target)

	// The shared call outlives any single caller; each caller only stops
	// waiting when its own context is done.
	detached := context.WithoutCancel(ctx)
	ch := f.group.DoChan(fetchURL, func() (any, error) {
		return f.do(detached, fetchURL, target, proxy != "", timeout)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared && f.log != nil {
			f.log.Debugf("Shared in-flight response for %s", fetchURL)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*response), nil
	}
}

func (f *Fetcher) do(ctx context.Context, fetchURL, target string, proxied bool, timeout time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, &FetchError{
			Kind:    KindParse,
			Message: fmt.Sprintf("Failed to parse request URL %q: %v", fetchURL, err),
			Err:     err,
		}
	}

	if f.log != nil {
		f.log.Debugf("GET %s", fetchURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, transportError(err, target, proxied, timeout)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err, target, proxied, timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"), f.now())
		return nil, statusError(resp.StatusCode, target, proxied, retryAfter)
	}

	if !resp.Uncompressed {
		body, err = decompress(body, resp.Header.Get("Content-Encoding"))
		if err != nil {
			return nil, &FetchError{
				Kind:    KindParse,
				Message: fmt.Sprintf("Failed to parse compressed body from %s: %v", target, err),
				Err:     err,
			}
		}
	}

	return &response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}
