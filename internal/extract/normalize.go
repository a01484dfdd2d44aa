package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds s with NFKC, removes thousands separators and collapses
// whitespace runs to a single space. Invalid UTF-8 is dropped first, so
// Normalize is total.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(strings.ToValidUTF8(s, ""))
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}
