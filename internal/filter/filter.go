// Package filter redacts personal information and inappropriate content from
// a single chat message. It performs no I/O and holds no mutable state, so
// Filter is safe for any number of concurrent callers.
package filter

import "strings"

// Verdict is the result of filtering one message.
type Verdict struct {
	IsBlocked         bool       `json:"is_blocked" yaml:"is_blocked"`
	MatchedCategories []Category `json:"matched_categories" yaml:"matched_categories"`
	CleanedContent    string     `json:"cleaned_content" yaml:"cleaned_content"`
	Reason            string     `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Filter evaluates every applicable rule in order against the working copy of
// message and replaces all matches with the rule's category token.
func Filter(message string, isUnder13, strictMode bool) Verdict {
	if strings.TrimSpace(message) == "" {
		return Verdict{CleanedContent: message, MatchedCategories: []Category{}}
	}

	cleaned := message
	matched := make([]Category, 0, 2)
	seen := make(map[Category]struct{})

	for _, r := range rules {
		if !r.Scope.applies(isUnder13, strictMode) {
			continue
		}
		if !r.Pattern.MatchString(cleaned) {
			continue
		}
		cleaned = r.Pattern.ReplaceAllLiteralString(cleaned, r.Category.Token())
		if _, ok := seen[r.Category]; !ok {
			seen[r.Category] = struct{}{}
			matched = append(matched, r.Category)
		}
	}

	if len(matched) == 0 {
		return Verdict{CleanedContent: message, MatchedCategories: matched}
	}

	return Verdict{
		IsBlocked:         true,
		MatchedCategories: matched,
		CleanedContent:    cleaned,
		Reason:            reason(matched),
	}
}

func reason(matched []Category) string {
	labels := make([]string, len(matched))
	for i, c := range matched {
		labels[i] = c.Label()
	}
	return "Contains: " + strings.Join(labels, ", ")
}

// Has reports whether the verdict matched category c.
func (v Verdict) Has(c Category) bool {
	for _, m := range v.MatchedCategories {
		if m == c {
			return true
		}
	}
	return false
}
