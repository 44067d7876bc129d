package scope

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hamza/scanhub/internal/models"
)

// ErrUnsafeTarget is returned by Sanitize for targets that could escape
// into a shell or corrupt a command line.
var ErrUnsafeTarget = errors.New("target contains unsafe characters")

// ErrOutOfScope is returned by Authorize for targets no scope rule allows.
var ErrOutOfScope = errors.New("target is outside allowed scope")

// maxTargetLength caps target size; longer values are rejected outright.
const maxTargetLength = 255

// unsafeChars are shell meta-characters never allowed in a target, plus
// carriage return and newline.
const unsafeChars = ";&|`$(){}[]<>\\'\"\r\n"

// Sanitize rejects targets containing shell meta-characters, CR/LF, or
// exceeding 255 characters. It runs unconditionally before any scope check:
// a target must be syntactically safe even if authorization is bypassed by
// a bug elsewhere.
func Sanitize(target string) error {
	if target == "" {
		return fmt.Errorf("%w: target is empty", ErrUnsafeTarget)
	}
	if len(target) > maxTargetLength {
		return fmt.Errorf("%w: target exceeds %d characters", ErrUnsafeTarget, maxTargetLength)
	}
	if i := strings.IndexAny(target, unsafeChars); i >= 0 {
		return fmt.Errorf("%w: disallowed character %q", ErrUnsafeTarget, target[i])
	}
	return nil
}

// Authorize checks target against a single scope. The target is normalized
// to lower case, matched against hostname patterns first, and, when it
// parses as a dotted-quad IPv4 address, against each CIDR range.
//
// Malformed CIDR entries and out-of-range prefixes never match (fail
// closed). IPv6 literals never match a CIDR and must be added as explicit
// host entries.
func Authorize(target string, sc *models.Scope) error {
	t := strings.ToLower(strings.TrimSpace(target))

	for _, pattern := range sc.Hosts {
		if hostMatches(t, pattern) {
			return nil
		}
	}

	if ip, ok := parseIPv4(t); ok {
		for _, cidr := range sc.CIDRs {
			if cidrContains(cidr, ip) {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %q not allowed by scope %q", ErrOutOfScope, target, sc.Name)
}

// Validate runs Sanitize then Authorize.
func Validate(target string, sc *models.Scope) error {
	if err := Sanitize(target); err != nil {
		return err
	}
	return Authorize(target, sc)
}

// hostMatches returns true when target satisfies the scope pattern.
//
//   - "example.com" matches only the exact string "example.com".
//   - "*.example.com" matches "example.com" itself and any subdomain of it
//     ("sub.example.com", "a.b.example.com") but not "notexample.com".
//   - Comparison is case-insensitive.
func hostMatches(target, pattern string) bool {
	pattern = strings.ToLower(pattern)

	if !strings.HasPrefix(pattern, "*.") {
		return target == pattern
	}

	suffix := pattern[2:]
	return target == suffix || strings.HasSuffix(target, "."+suffix)
}

// parseIPv4 parses a strict dotted-quad IPv4 literal into a 32-bit integer.
func parseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var ip uint32
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return 0, false
		}
		ip = ip<<8 | uint32(n)
	}
	return ip, true
}

// cidrContains reports whether ip falls inside the given "a.b.c.d/prefix"
// range. A prefix of 0 produces an all-zero mask and matches every address.
// Malformed entries return false.
func cidrContains(cidr string, ip uint32) bool {
	addr, prefixStr, found := strings.Cut(cidr, "/")
	if !found {
		return false
	}
	base, ok := parseIPv4(strings.TrimSpace(addr))
	if !ok {
		return false
	}
	prefix, err := strconv.Atoi(strings.TrimSpace(prefixStr))
	if err != nil || prefix < 0 || prefix > 32 {
		return false
	}
	var mask uint32
	if prefix > 0 {
		mask = ^uint32(0) << (32 - prefix)
	}
	return base&mask == ip&mask
}
