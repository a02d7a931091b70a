package normalize

import (
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/publicsuffix"
)

// URLFilter implements spec.md §6's blacklist_url/whitelist_url/
// external_domains filtering. A URL is crawlable when it matches no
// blacklist pattern, matches the whitelist (if any is configured), and
// passes the external-domains check relative to the crawl's seed host.
type URLFilter struct {
	blacklist            []glob.Glob
	whitelist            []glob.Glob
	allowExternalDomains bool
	subdomains           bool
	tld                  bool
	seedHost             string
	seedETLDPlusOne      string
	seedRegistrableLabel string // the registrable name with its public suffix stripped, e.g. "example" from "example.com"
}

// FilterConfig mirrors the relevant slice of spec.md §6's Filtering and
// Crawling configuration blocks.
type FilterConfig struct {
	BlacklistURL    []string
	WhitelistURL    []string
	ExternalDomains bool // corresponds to config allowing off-seed-domain hosts
	Subdomains      bool
	TLD             bool
}

// NewURLFilter compiles cfg's glob patterns once; seedURL anchors the
// external-domain and subdomain/TLD policy checks.
func NewURLFilter(cfg FilterConfig, seedURL *url.URL) (*URLFilter, error) {
	f := &URLFilter{allowExternalDomains: cfg.ExternalDomains}
	for _, pat := range cfg.BlacklistURL {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, err
		}
		f.blacklist = append(f.blacklist, g)
	}
	for _, pat := range cfg.WhitelistURL {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, err
		}
		f.whitelist = append(f.whitelist, g)
	}
	f.subdomains = cfg.Subdomains
	f.tld = cfg.TLD
	if seedURL != nil {
		f.seedHost = strings.ToLower(seedURL.Hostname())
		f.seedETLDPlusOne = etldPlusOne(f.seedHost)
		f.seedRegistrableLabel = strings.TrimSuffix(f.seedETLDPlusOne, publicSuffixOf(f.seedETLDPlusOne))
	}
	return f, nil
}

func publicSuffixOf(etldPlusOneHost string) string {
	suffix, _ := publicsuffix.PublicSuffix(etldPlusOneHost)
	return suffix
}

func etldPlusOne(host string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(etld1)
}

// Allowed reports whether rawURL passes the blacklist/whitelist and
// domain-scope checks. Blacklist takes precedence over whitelist, matching
// the teacher's exclusion-first ordering in requests_crawler.go
// (excludeHostRE / excludePathRE checked before the generic skip pattern).
func (f *URLFilter) Allowed(rawURL string) bool {
	for _, g := range f.blacklist {
		if g.Match(rawURL) {
			return false
		}
	}
	if len(f.whitelist) > 0 {
		matched := false
		for _, g := range f.whitelist {
			if g.Match(rawURL) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.seedHost == "" {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())

	if host == f.seedHost {
		return true
	}
	if f.subdomains && strings.HasSuffix(host, "."+f.seedETLDPlusOne) {
		return true
	}
	if f.tld {
		hostETLD1 := etldPlusOne(host)
		hostLabel := strings.TrimSuffix(hostETLD1, publicSuffixOf(hostETLD1))
		if hostLabel == f.seedRegistrableLabel {
			return true
		}
	}
	return f.allowExternalDomains
}
