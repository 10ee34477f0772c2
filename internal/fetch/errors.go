package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind tags a failure so that retry policy can be derived from it.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindCORS        Kind = "cors"
	KindRateLimit   Kind = "rate_limit"
	KindServerError Kind = "server_error"
	KindNotFound    Kind = "not_found"
	KindTimeout     Kind = "timeout"
	KindParse       Kind = "parse_error"
	KindUnknown     Kind = "unknown"
)

// FetchError is the single error type surfaced by fetching and extraction.
// Status is 0 when no HTTP response was received.
type FetchError struct {
	Kind       Kind
	Message    string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt can change the outcome.
func (e *FetchError) Retryable() bool {
	return e.Kind != KindNotFound && e.Kind != KindParse
}

// ParseError builds a parse_error failure with a formatted message.
func ParseError(format string, args ...any) *FetchError {
	return &FetchError{Kind: KindParse, Message: fmt.Sprintf(format, args...)}
}

var (
	timeoutWords = regexp.MustCompile(`(?i)timeout|timed out|deadline exceeded`)
	corsWords    = regexp.MustCompile(`(?i)\bcors\b|cross-origin|access-control-allow-origin`)
	networkWords = regexp.MustCompile(`(?i)offline|failed to fetch|network|connection refused|connection reset|no such host|unreachable|eof`)
	parseWords   = regexp.MustCompile(`(?i)pars(e|ing)|selector|no content`)
)

// Classify maps any error to a *FetchError. An error that already is (or
// wraps) a *FetchError keeps its classification unless its kind is unknown.
//
// Precedence: timeout, rate_limit, not_found, server_error, cors, network,
// parse_error, unknown.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Kind != "" && fe.Kind != KindUnknown {
			return fe
		}
		out := *fe
		out.Kind = classifyKind(fe.Status, fe.Err, fe.Error())
		return &out
	}

	return &FetchError{
		Kind:    classifyKind(0, err, err.Error()),
		Message: err.Error(),
		Err:     err,
	}
}

func classifyKind(status int, cause error, msg string) Kind {
	switch {
	case isTimeout(cause, msg):
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500 && status <= 599:
		return KindServerError
	case status != 0:
		// a response arrived, so the wording rules below do not apply
		return KindUnknown
	case corsWords.MatchString(msg), status == 0 && cause == nil && !parseWords.MatchString(msg):
		return KindCORS
	case isNetwork(cause, msg):
		return KindNetwork
	case parseWords.MatchString(msg):
		return KindParse
	default:
		return KindUnknown
	}
}

func isTimeout(cause error, msg string) bool {
	if cause != nil {
		if errors.Is(cause, context.DeadlineExceeded) {
			return true
		}
		var ne net.Error
		if errors.As(cause, &ne) && ne.Timeout() {
			return true
		}
	}
	return timeoutWords.MatchString(msg)
}

func isNetwork(cause error, msg string) bool {
	if cause != nil {
		var opErr *net.OpError
		var dnsErr *net.DNSError
		if errors.As(cause, &opErr) || errors.As(cause, &dnsErr) {
			return true
		}
	}
	return networkWords.MatchString(msg)
}

// ParseRetryAfter reads a Retry-After header value given either in seconds
// or as an HTTP date. Zero means the server gave no usable hint.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d.Round(time.Second)
		}
	}

	return 0
}

func statusError(status int, target string, proxied bool, retryAfter time.Duration) *FetchError {
	kind := classifyKind(status, nil, "")
	msg := fmt.Sprintf("Failed to fetch %s. Status: %d.", target, status)
	if proxied {
		msg += " The proxy could not retrieve the page; check the proxy URL or try another proxy."
	} else {
		msg += " The site may be blocking direct requests (a browser would report this as CORS); configure a proxy_url."
	}

	return &FetchError{
		Kind:       kind,
		Message:    msg,
		Status:     status,
		RetryAfter: retryAfter,
	}
}

func transportError(err error, target string, proxied bool, timeout time.Duration) *FetchError {
	if isTimeout(err, err.Error()) {
		return &FetchError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("Request to %s timed out after %s.", target, timeout),
			Err:     err,
		}
	}

	kind := classifyKind(0, err, err.Error())
	if kind == KindUnknown {
		kind = KindNetwork
	}

	msg := fmt.Sprintf("Failed to fetch %s: %v.", target, err)
	if proxied {
		msg += " The proxy may be down or unreachable."
	} else {
		msg += " Check the network connection or configure a proxy_url."
	}

	return &FetchError{
		Kind:    kind,
		Message: msg,
		Err:     err,
	}
}
