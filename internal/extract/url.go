package extract

import (
	"regexp"

	"github.com/nao1215/hitscan/internal/model"
)

// IdentifierFromURL finds a machine number in a URL. Query parameters are
// tried in a fixed key order, then a numeric path segment, then a "No."
// or "#" label anywhere in the string.
func IdentifierFromURL(rawURL string) (model.Identifier, bool) {
	u := Normalize(rawURL)
	if u == "" {
		return "", false
	}
	for _, re := range urlQueryParams {
		if id, ok := firstMatch(re, u); ok {
			return id, true
		}
	}
	if id, ok := firstMatch(urlPathSegment, u); ok {
		return id, true
	}
	return firstMatch(urlNumberLabel, u)
}

func firstMatch(re *regexp.Regexp, s string) (model.Identifier, bool) {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if id, ok := firstValidGroup(m); ok {
			return id, true
		}
	}
	return "", false
}
