package scope

import (
	"net/url"
	"strings"

	"github.com/alvmarrod/site-spider/internal/profile"
)

// Hrefs with these prefixes are never crawl targets
var reservedPrefixes = []string{"#", "mailto:", "data:", "javascript:"}

// Filter decides which URLs belong to a profile's crawl. It holds no mutable
// state and is safe for concurrent use.
type Filter struct {
	whitelist []string
	blacklist []string
}

// NewFilter creates a filter for the given profile
func NewFilter(p profile.Profile) *Filter {
	f := &Filter{
		whitelist: make([]string, len(p.Whitelist)),
		blacklist: make([]string, len(p.Blacklist)),
	}
	copy(f.whitelist, p.Whitelist)
	copy(f.blacklist, p.Blacklist)
	return f
}

// Resolve resolves rawHref against originURL and reports whether the result
// is in scope. An empty rawHref stands for the origin page itself.
func (f *Filter) Resolve(originURL, rawHref string) (string, bool) {
	if IsReserved(rawHref) {
		return "", false
	}

	base, err := url.Parse(originURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(rawHref)
	if err != nil {
		return "", false
	}

	absolute := base.ResolveReference(ref).String()
	if !f.Allows(absolute) {
		return "", false
	}
	return absolute, true
}

// Allows applies the literal prefix test: some whitelist entry must prefix
// the URL and no blacklist entry may
func (f *Filter) Allows(absoluteURL string) bool {
	if !hasAnyPrefix(absoluteURL, f.whitelist) {
		return false
	}
	return !hasAnyPrefix(absoluteURL, f.blacklist)
}

// IsReserved reports whether href is an anchor, mail, data or script link
func IsReserved(href string) bool {
	return hasAnyPrefix(href, reservedPrefixes)
}

// Domain returns the network location (host and optional port) of a URL
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
