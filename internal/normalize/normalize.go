// Package normalize turns heterogeneous phone, date and name representations
// into comparable canonical forms. All functions are pure and never fail.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDateFields are the record columns searched for a creation date, in order
var DefaultDateFields = []string{"Created on", "created_date", "date"}

// dateLayouts is the fixed list of accepted date representations
var dateLayouts = []string{
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"01/02/06",
}

// Phone strips every non-digit and drops a leading country code 1 from an
// 11 digit number. Phone(Phone(x)) == Phone(x).
func Phone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		return digits[1:]
	}
	return digits
}

// ParseDate tries every accepted layout against raw
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractDate returns the first parseable date among the candidate fields,
// tried in order. DefaultDateFields are used when no candidates are given.
func ExtractDate(fields map[string]string, candidates ...string) (time.Time, string, bool) {
	if len(candidates) == 0 {
		candidates = DefaultDateFields
	}
	for _, name := range candidates {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if t, ok := ParseDate(raw); ok {
			return t, raw, true
		}
	}
	return time.Time{}, "", false
}

// DaysApart is the absolute whole-day difference between two calendar dates
func DaysApart(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// Name case-folds, strips diacritics and collapses whitespace
func Name(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

// Similarity is the edit-distance ratio of two strings in [0,1], computed
// over runes after Name normalization.
func Similarity(a, b string) float64 {
	a, b = Name(a), Name(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
