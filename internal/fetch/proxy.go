package fetch

import (
	"net/url"
	"strings"
)

// BuildProxyURL returns the URL that is actually requested for target.
//
// Proxies written as "...?url=" receive the target percent-encoded, any
// other proxy prefix gets the raw target appended verbatim.
func BuildProxyURL(proxy, target string) string {
	if proxy == "" {
		return target
	}

	if strings.Contains(proxy, "?url=") {
		return proxy + EncodeURIComponent(target)
	}

	return proxy + target
}

var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way browsers do for a single URI
// component: everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func EncodeURIComponent(s string) string {
	return componentUnescapes.Replace(url.QueryEscape(s))
}
