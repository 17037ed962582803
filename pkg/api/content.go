package api

import "sort"

// ContentOrder lists generated content kinds in display order.
var ContentOrder = []string{"summary", "deep_dive", "tweet", "thread", "linkedin", "newsletter"}

// ContentKinds returns the kinds present in d.Content, known kinds first in
// ContentOrder and the rest alphabetically.
func (d RepositoryDetail) ContentKinds() []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(d.Content))
	for _, k := range ContentOrder {
		if _, ok := d.Content[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range d.Content {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
