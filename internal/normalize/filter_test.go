package normalize

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestURLFilterBlacklistTakesPrecedence(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{
		BlacklistURL: []string{"*/wp-admin/*"},
		WhitelistURL: []string{"*"},
	}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if f.Allowed("https://example.com/wp-admin/edit") {
		t.Error("blacklisted path should never be allowed, even if whitelist matches")
	}
}

func TestURLFilterWhitelistRestricts(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{
		WhitelistURL: []string{"*/blog/*"},
	}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if !f.Allowed("https://example.com/blog/post-1") {
		t.Error("expected whitelisted path to be allowed")
	}
	if f.Allowed("https://example.com/shop/item") {
		t.Error("expected non-whitelisted path to be rejected")
	}
}

func TestURLFilterSameHostAlwaysAllowed(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if !f.Allowed("https://example.com/anything") {
		t.Error("expected the seed host to always be allowed")
	}
}

func TestURLFilterExternalDomainRejectedByDefault(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if f.Allowed("https://other.com/") {
		t.Error("expected an external domain to be rejected when external_domains is false")
	}
}

func TestURLFilterExternalDomainAllowedWhenConfigured(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{ExternalDomains: true}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if !f.Allowed("https://other.com/") {
		t.Error("expected an external domain to be allowed when external_domains is true")
	}
}

func TestURLFilterSubdomainsPolicy(t *testing.T) {
	f, err := NewURLFilter(FilterConfig{Subdomains: true}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if !f.Allowed("https://blog.example.com/post") {
		t.Error("expected a subdomain of the seed host to be allowed when subdomains is true")
	}

	fNoSub, err := NewURLFilter(FilterConfig{Subdomains: false}, mustParse(t, "https://example.com/"))
	if err != nil {
		t.Fatalf("NewURLFilter: %v", err)
	}
	if fNoSub.Allowed("https://blog.example.com/post") {
		t.Error("expected a subdomain to be rejected when subdomains is false")
	}
}
