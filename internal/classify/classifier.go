// Package classify assigns a spending category to an expense description.
package classify

import (
	"context"
	"strings"
)

// Categories is the closed set of labels an expense can carry. Anything a
// classifier produces outside this set collapses to Other.
var Categories = []string{
	"Food",
	"Travel",
	"Rent",
	"Entertainment",
	"Utilities",
	"Shopping",
	"Other",
}

// CategoryOther is the fallback label.
const CategoryOther = "Other"

// Classifier maps a free-text expense description to one of Categories.
type Classifier interface {
	Classify(ctx context.Context, description string) (string, error)
}

// Sanitize normalizes a raw classifier verdict to a known label. Model
// output tends to arrive with stray whitespace, punctuation or casing.
func Sanitize(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `."'`)
	for _, c := range Categories {
		if strings.EqualFold(cleaned, c) {
			return c
		}
	}
	return CategoryOther
}
