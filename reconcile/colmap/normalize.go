package colmap

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	numberAbbrev = regexp.MustCompile(`\bno\.\s*`)
	underscores  = regexp.MustCompile(`_+`)
	separators   = strings.NewReplacer(
		"#", "number",
		"&", "and",
		"(", "_",
		")", "_",
		" ", "_",
		"-", "_",
		"/", "_",
		".", "_",
		"?", "_",
	)
)

// Normalize maps a native column name to its canonical form, e.g.
// "Product Name" to "PRODUCT_NAME" and "Order No." to "ORDER_NUMBER".
// Characters that are neither letters, digits nor separators are dropped.
// Normalize is idempotent.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = numberAbbrev.ReplaceAllString(s, "number_")
	s = separators.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	s = underscores.ReplaceAllString(s, "_")
	return strings.ToUpper(strings.Trim(s, "_"))
}

// FoldCase aligns names by case only.
func FoldCase(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
