package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedAddress is returned when a page address is not an absolute
// http(s) URL with a host. Addresses are validated before any I/O happens.
var ErrMalformedAddress = errors.New("malformed page address")

// ParseAddress validates a page address and returns its parsed form.
// Surrounding whitespace is ignored. The scheme must be http or https and
// the host must be present; relative references are rejected.
func ParseAddress(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty address", ErrMalformedAddress)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrMalformedAddress, raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q: scheme must be http or https", ErrMalformedAddress, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q: missing host", ErrMalformedAddress, raw)
	}

	return u, nil
}

// NormalizeAddress returns the canonical form of a page address used for
// de-duplication. The scheme and host are lowercased, the fragment and query
// are dropped and a trailing slash is removed from the path. Addresses that
// fail to parse are returned unchanged.
func NormalizeAddress(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""

	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "/" {
		u.Path = ""
	}

	return u.String()
}

// HostRoot returns scheme://host of an address, the prefix every relative
// repository link is resolved against.
func HostRoot(u *url.URL) *url.URL {
	return &url.URL{Scheme: strings.ToLower(u.Scheme), Host: u.Host}
}

// RootAddress validates a repository root and returns the key it is stored
// under: the fragment and trailing slashes are removed, the query is kept.
func RootAddress(raw string) (string, error) {
	u, err := ParseAddress(raw)
	if err != nil {
		return "", err
	}

	root := *u
	root.Fragment = ""
	root.RawFragment = ""
	root.Path = strings.TrimRight(root.Path, "/")
	root.RawPath = ""

	return root.String(), nil
}
