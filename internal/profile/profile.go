package profile

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrUnknownProfile is returned by Registry.Lookup for names with no profile
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrEmptyWhitelist is returned when a profile has nothing to crawl
	ErrEmptyWhitelist = errors.New("profile whitelist is empty")
)

// Profile describes one crawlable site: the URL prefixes that are in scope
// and the prefixes that are carved out of them
type Profile struct {
	Name      string   `json:"name"`
	Whitelist []string `json:"whitelist"`
	Blacklist []string `json:"blacklist"`
}

// Validate checks that the profile can be used to crawl
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if len(p.Whitelist) == 0 {
		return fmt.Errorf("%s: %w", p.Name, ErrEmptyWhitelist)
	}
	if _, err := url.Parse(p.Whitelist[0]); err != nil {
		return fmt.Errorf("%s: invalid whitelist entry %q: %w", p.Name, p.Whitelist[0], err)
	}
	return nil
}

// rootURL parses the first whitelist entry, which defines the crawl root
func (p Profile) rootURL() *url.URL {
	if len(p.Whitelist) == 0 {
		return nil
	}
	u, err := url.Parse(p.Whitelist[0])
	if err != nil {
		return nil
	}
	return u
}

// RootDomain returns the host (with port, if any) of the first whitelist entry
func (p Profile) RootDomain() string {
	if u := p.rootURL(); u != nil {
		return u.Host
	}
	return ""
}

// RootHost returns the hostname of the first whitelist entry, without port
func (p Profile) RootHost() string {
	if u := p.rootURL(); u != nil {
		return u.Hostname()
	}
	return ""
}

// Seeds returns the crawl start URLs, one per whitelist entry
func (p Profile) Seeds() []string {
	seeds := make([]string, len(p.Whitelist))
	copy(seeds, p.Whitelist)
	return seeds
}
