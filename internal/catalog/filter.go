package catalog

import "strings"

// FilterFunc returns true when a title should be kept.
type FilterFunc func(string) bool

// Missing returns a filter that drops blank titles, titles already present in
// existing, and repeats, all compared case-insensitively.
func Missing(existing []string) FilterFunc {
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[normalize(t)] = struct{}{}
	}
	return func(title string) bool {
		key := normalize(title)
		if key == "" {
			return false
		}
		if _, ok := seen[key]; ok {
			return false
		}
		seen[key] = struct{}{}
		return true
	}
}

// Filter keeps the titles accepted by keep, trimmed, in their original order.
func Filter(titles []string, keep FilterFunc) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if keep(t) {
			out = append(out, strings.TrimSpace(t))
		}
	}
	return out
}

func normalize(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
