package extract

import (
	"regexp"

	"github.com/nao1215/hitscan/internal/model"
)

// ExtractIdentifierCandidates returns every machine number found in
// normalized, family by family (number labels, generic labels, bare digit
// tokens, digits near 台). Each match must be a whole 2-5 digit run.
// Duplicates are dropped keeping discovery order.
func ExtractIdentifierCandidates(normalized string) []model.Identifier {
	if normalized == "" {
		return nil
	}
	var out []model.Identifier
	for _, re := range identifierFamilies {
		out = appendGroupMatches(out, re, normalized)
	}
	return model.UniqueIdentifiers(out)
}

// FirstIdentifier returns the highest priority identifier in normalized,
// or "" if there is none.
func FirstIdentifier(normalized string) model.Identifier {
	for _, re := range identifierFamilies {
		for _, m := range re.FindAllStringSubmatch(normalized, -1) {
			if id, ok := firstValidGroup(m); ok {
				return id
			}
		}
	}
	return ""
}

// appendGroupMatches appends the first non-empty, valid capture group of
// every match of re in s.
func appendGroupMatches(out []model.Identifier, re *regexp.Regexp, s string) []model.Identifier {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if id, ok := firstValidGroup(m); ok {
			out = append(out, id)
		}
	}
	return out
}

func firstValidGroup(m []string) (model.Identifier, bool) {
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		return model.ValidIdentifier(g)
	}
	return "", false
}
