package domain

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

var (
	ErrInvalidAddress  = errors.New("invalid ip address")
	ErrInvalidUsername = errors.New("invalid username")

	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)
)

// NormalizeIP returns the canonical text form of an IPv4 or IPv6 address.
// IPv4-mapped IPv6 addresses collapse to their IPv4 form.
func NormalizeIP(raw string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	if addr.Zone() != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return addr.Unmap().String(), nil
}

// NormalizeIPs validates and de-duplicates addresses, keeping the first-seen order.
func NormalizeIPs(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, value := range raw {
		ip, err := NormalizeIP(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		out = append(out, ip)
	}
	return out, nil
}

// NormalizeUsername trims and lower-cases a username and checks its charset.
func NormalizeUsername(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUsername, raw)
	}
	return name, nil
}

// TrimNote returns nil for blank notes and the trimmed note otherwise.
func TrimNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
