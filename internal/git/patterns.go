package git

import "strings"

// ExpandPatterns prepares user-supplied path filters for a non-cone sparse
// checkout. A bare directory prefix such as "docs" only matches an entry
// named exactly "docs", so each pattern free of glob metacharacters is paired
// with a "<pattern>/*" companion that matches its contents. Patterns that
// already carry glob syntax pass through untouched. Order is preserved and
// duplicates are dropped.
func ExpandPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns)*2)
	seen := make(map[string]struct{}, len(patterns)*2)
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		add(p)
		if !strings.ContainsAny(p, "*?[") {
			add(strings.TrimSuffix(p, "/") + "/*")
		}
	}
	return out
}
