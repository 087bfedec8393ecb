// Package classify maps free-text record labels onto category tags using
// priority-ordered keyword tables.
package classify

import "strings"

// OtherTag is the reserved fallback category for tables whose policy keeps
// unmatched records rather than dropping them.
const OtherTag = "other"

// Fallback is the per-dataset policy for labels no keyword matches.
type Fallback int

const (
	// Drop excludes the record from aggregation entirely.
	Drop Fallback = iota
	// Other assigns the reserved "other" category.
	Other
)

// Category is one entry of a classification table. Keywords must be upper
// case; matching is case-insensitive substring containment against the
// uppercased label. Name and Color feed the output legend.
type Category struct {
	Tag      string
	Name     string
	Color    string
	Keywords []string
}

// Table is a priority-ordered classification table. Earlier categories win:
// the first category with a matching keyword claims the label.
type Table struct {
	Categories  []Category
	OnUnmatched Fallback
}

// Classify returns the category tag for a label. The second return is false
// only when no keyword matched and the table's policy is Drop.
func (t *Table) Classify(label string) (string, bool) {
	upper := strings.ToUpper(label)
	for _, c := range t.Categories {
		for _, kw := range c.Keywords {
			if strings.Contains(upper, kw) {
				return c.Tag, true
			}
		}
	}
	if t.OnUnmatched == Other {
		return OtherTag, true
	}
	return "", false
}

// Lookup returns the category with the given tag, if present.
func (t *Table) Lookup(tag string) (Category, bool) {
	for _, c := range t.Categories {
		if c.Tag == tag {
			return c, true
		}
	}
	return Category{}, false
}
