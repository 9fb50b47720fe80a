// Package access decides which verified identities may use the scheduler.
package access

import "strings"

// Policy is an allow-list of identities. The zero value allows everyone.
type Policy struct {
	allowed map[string]struct{}
}

// NewPolicy normalises the configured identities (trimmed, lower-cased) and
// drops blank entries.
func NewPolicy(identities []string) Policy {
	p := Policy{allowed: make(map[string]struct{}, len(identities))}
	for _, id := range identities {
		if id = normalise(id); id != "" {
			p.allowed[id] = struct{}{}
		}
	}
	return p
}

// IsAllowed reports whether identity may use the system. An empty allow-list
// means no restriction is configured.
func (p Policy) IsAllowed(identity string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[normalise(identity)]
	return ok
}

// Restricted reports whether an allow-list is configured at all.
func (p Policy) Restricted() bool {
	return len(p.allowed) > 0
}

func normalise(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
