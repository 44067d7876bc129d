package scope

import (
	"strings"
	"testing"

	"github.com/hamza/scanhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name   string
		target string
		wantOK bool
	}{
		{"plain hostname", "scanme.nmap.org", true},
		{"plain ip", "192.168.1.1", true},
		{"hyphenated host", "my-host.example.com", true},
		{"semicolon", "host;rm -rf /", false},
		{"backtick", "host`id`", false},
		{"pipe", "host|cat", false},
		{"ampersand", "host&", false},
		{"dollar", "host$PATH", false},
		{"subshell", "host$(id)", false},
		{"redirect", "host>out", false},
		{"quote", "host'x", false},
		{"double quote", `host"x`, false},
		{"backslash", `host\x`, false},
		{"newline", "host\nid", false},
		{"carriage return", "host\rid", false},
		{"brackets", "host[0]", false},
		{"braces", "host{a}", false},
		{"empty", "", false},
		{"overlong", strings.Repeat("a", 256), false},
		{"max length", strings.Repeat("a", 255), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Sanitize(tt.target)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsafeTarget)
			}
		})
	}
}

func TestAuthorizeHostPatterns(t *testing.T) {
	sc := &models.Scope{
		Name:  "web",
		Hosts: []string{"exact.example.org", "*.example.com"},
	}

	assert.NoError(t, Authorize("exact.example.org", sc))
	assert.NoError(t, Authorize("EXACT.EXAMPLE.ORG", sc), "matching is case-insensitive")
	assert.NoError(t, Authorize("sub.example.com", sc))
	assert.NoError(t, Authorize("a.b.example.com", sc))
	assert.NoError(t, Authorize("example.com", sc), "wildcard covers the suffix domain itself")

	assert.ErrorIs(t, Authorize("notexample.com", sc), ErrOutOfScope)
	assert.ErrorIs(t, Authorize("other.example.org", sc), ErrOutOfScope)
	assert.ErrorIs(t, Authorize("example.com.evil.io", sc), ErrOutOfScope)
}

func TestAuthorizeCIDR(t *testing.T) {
	sc := &models.Scope{
		Name:  "internal",
		CIDRs: []string{"10.0.0.0/8", "192.168.1.0/24"},
	}

	assert.NoError(t, Authorize("10.1.2.3", sc))
	assert.NoError(t, Authorize("192.168.1.77", sc))
	assert.ErrorIs(t, Authorize("11.0.0.0", sc), ErrOutOfScope)
	assert.ErrorIs(t, Authorize("192.168.2.1", sc), ErrOutOfScope)

	// Hostnames never match CIDR entries.
	assert.ErrorIs(t, Authorize("ten.example.com", sc), ErrOutOfScope)
}

func TestAuthorizeZeroPrefixMatchesEverything(t *testing.T) {
	sc := &models.Scope{Name: "any", CIDRs: []string{"0.0.0.0/0"}}

	for _, ip := range []string{"1.2.3.4", "255.255.255.255", "0.0.0.0", "8.8.8.8"} {
		assert.NoError(t, Authorize(ip, sc), ip)
	}
}

func TestAuthorizeFailsClosed(t *testing.T) {
	sc := &models.Scope{
		Name:  "broken",
		CIDRs: []string{"10.0.0.0", "10.0.0.0/33", "10.0.0.0/-1", "garbage/8", "10.0.0.0/x"},
	}

	// Every entry is malformed or out of range, so nothing matches.
	assert.ErrorIs(t, Authorize("10.1.2.3", sc), ErrOutOfScope)
}

func TestAuthorizeIPv6NeverMatchesCIDR(t *testing.T) {
	sc := &models.Scope{
		Name:  "mixed",
		Hosts: []string{"::1"},
		CIDRs: []string{"0.0.0.0/0"},
	}

	// IPv6 literal authorized only via an explicit host entry.
	assert.NoError(t, Authorize("::1", sc))
	assert.ErrorIs(t, Authorize("fe80::1", sc), ErrOutOfScope)
}

func TestValidateRejectsUnsafeBeforeScope(t *testing.T) {
	sc := &models.Scope{Name: "any", CIDRs: []string{"0.0.0.0/0"}, Hosts: []string{"*.example.com"}}

	err := Validate("sub.example.com;id", sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeTarget, "sanitize runs before any scope rule")
}
