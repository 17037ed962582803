package runstate

import (
	"sort"
	"strings"
)

// Scope is the set of category slugs a run acts on. An empty scope means all
// categories, never zero categories.
type Scope []string

func NewScope(slugs ...string) Scope {
	return Scope(slugs).Normalize()
}

// Normalize returns a sorted copy without blanks or duplicates.
func (s Scope) Normalize() Scope {
	seen := make(map[string]struct{}, len(s))
	out := make(Scope, 0, len(s))
	for _, slug := range s {
		slug = strings.TrimSpace(slug)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (s Scope) IsAll() bool {
	return len(s.Normalize()) == 0
}

func (s Scope) Contains(slug string) bool {
	for _, v := range s {
		if v == slug {
			return true
		}
	}
	return false
}

// Toggle returns a new scope with slug added or removed.
func (s Scope) Toggle(slug string) Scope {
	if s.Contains(slug) {
		out := make(Scope, 0, len(s))
		for _, v := range s {
			if v != slug {
				out = append(out, v)
			}
		}
		return out.Normalize()
	}
	return append(append(Scope{}, s...), slug).Normalize()
}

func (s Scope) String() string {
	n := s.Normalize()
	if len(n) == 0 {
		return "all categories"
	}
	return strings.Join(n, ",")
}
