package models

import (
	"time"

	"github.com/google/uuid"
)

// Scope is a named authorization boundary for scan targets.
//
// Hosts holds hostname patterns: an exact entry ("example.com") matches only
// that literal value; a wildcard entry ("*.example.com") matches the suffix
// domain itself and any subdomain of it. CIDRs holds IPv4 ranges in
// "a.b.c.d/prefix" form. A target is in scope when it matches any host
// pattern or falls inside any CIDR.
//
// IPv6 literals are not matched against CIDRs; they must be listed as
// explicit host entries.
type Scope struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hosts     []string  `json:"hosts,omitempty"`
	CIDRs     []string  `json:"cidrs,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewScope creates an active scope with initialized metadata
func NewScope(name string, hosts, cidrs []string) *Scope {
	return &Scope{
		ID:        uuid.New().String(),
		Name:      name,
		Hosts:     hosts,
		CIDRs:     cidrs,
		Active:    true,
		CreatedAt: time.Now(),
	}
}
