package dnsname

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// lookupProfile maps unicode labels to their ASCII (punycode) form and
// enforces STD3 hostname rules.
var lookupProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(true),
)

// NormalizeLabel canonicalizes a user-chosen subdomain label: trims
// whitespace, lowercases, converts unicode to its ASCII form, and enforces
// LDH rules (letters, digits, hyphens; no leading/trailing hyphen; 1-63
// octets).
func NormalizeLabel(raw string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return "", fmt.Errorf("label is empty")
	}
	if strings.Contains(label, ".") {
		return "", fmt.Errorf("label %q must not contain dots", raw)
	}

	ascii, err := lookupProfile.ToASCII(label)
	if err != nil {
		return "", fmt.Errorf("label %q is not a valid DNS label: %w", raw, err)
	}
	if len(ascii) > 63 {
		return "", fmt.Errorf("label %q exceeds 63 octets", raw)
	}
	if strings.HasPrefix(ascii, "-") || strings.HasSuffix(ascii, "-") {
		return "", fmt.Errorf("label %q must not begin or end with a hyphen", raw)
	}
	for _, c := range ascii {
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' {
			continue
		}
		return "", fmt.Errorf("label %q contains invalid character %q", raw, c)
	}
	return ascii, nil
}

// NormalizeTarget converts a deployed URL into the FQDN form a CNAME record
// points at: scheme and path stripped, lowercased, trailing dot appended.
// "https://myapp.example.com/" becomes "myapp.example.com.".
func NormalizeTarget(raw string) (string, error) {
	target := strings.ToLower(strings.TrimSpace(raw))
	target = strings.TrimPrefix(target, "https://")
	target = strings.TrimPrefix(target, "http://")

	// Drop any path component; a CNAME target is a host, nothing more.
	if i := strings.IndexByte(target, '/'); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "", fmt.Errorf("target host is empty")
	}
	if !strings.HasSuffix(target, ".") {
		target += "."
	}
	return target, nil
}
