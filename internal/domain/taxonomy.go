package domain

import "strings"

// FallbackCategory is the taxonomy entry used when nothing matches.
const FallbackCategory = "Other"

// DefaultCategories is the closed category list used unless configured otherwise.
var DefaultCategories = []string{
	"Food", "Transport", "Entertainment", "Shopping",
	"Bills", "Utilities", "Health", "Education", FallbackCategory,
}

// Taxonomy is the ordered, closed set of allowed categories. The prompt
// builder and the normalizer share one instance so they cannot drift.
type Taxonomy struct {
	names []string
}

// NewTaxonomy builds a taxonomy from names, dropping blanks and duplicates.
// The fallback category is appended when missing.
func NewTaxonomy(names []string) Taxonomy {
	seen := make(map[string]bool, len(names)+1)
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		out = append(out, n)
	}
	if !seen[strings.ToLower(FallbackCategory)] {
		out = append(out, FallbackCategory)
	}
	return Taxonomy{names: out}
}

// DefaultTaxonomy returns the taxonomy built from DefaultCategories.
func DefaultTaxonomy() Taxonomy {
	return NewTaxonomy(DefaultCategories)
}

// Names returns a copy of the categories in order.
func (t Taxonomy) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Contains reports an exact match.
func (t Taxonomy) Contains(name string) bool {
	for _, n := range t.names {
		if n == name {
			return true
		}
	}
	return false
}

// Match maps a free-form candidate onto the taxonomy: exact match, then
// case-insensitive match, then containment in either direction, then the
// fallback category.
func (t Taxonomy) Match(candidate string) string {
	if t.Contains(candidate) {
		return candidate
	}
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return FallbackCategory
	}
	for _, n := range t.names {
		if strings.ToLower(n) == c {
			return n
		}
	}
	for _, n := range t.names {
		ln := strings.ToLower(n)
		if strings.Contains(c, ln) || strings.Contains(ln, c) {
			return n
		}
	}
	return FallbackCategory
}
