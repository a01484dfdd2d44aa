package extract

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/hitscan/internal/model"
)

// dataAttributes carry a machine number on link-like elements.
var dataAttributes = []string{"data-dai", "data-no", "data-unit", "data-machine", "data-ban"}

// maxElementText bounds how much of an element's text is scanned.
const maxElementText = 200

// HintIdentifier returns the machine number an element advertises, from a
// data attribute or, failing that, an identifier-bearing onclick handler.
func HintIdentifier(bag model.AttributeBag) (model.Identifier, bool) {
	for _, attr := range dataAttributes {
		if v := strings.TrimSpace(bag.Get(attr)); v != "" {
			if id, ok := model.NormalizeIdentifier(v); ok {
				return id, true
			}
		}
	}
	return OnclickIdentifier(bag.Get("onclick"))
}

// OnclickIdentifier finds a machine number in a script handler such as
// "openDai(123)" or "location.href='?cd_dai=123'".
func OnclickIdentifier(onclick string) (model.Identifier, bool) {
	if onclick == "" {
		return "", false
	}
	return firstMatch(onclickIdentifier, norm.NFKC.String(onclick))
}

// ScanDOM returns identifiers found in the attributes and text of harvested
// elements, in discovery order.
func ScanDOM(bags []model.AttributeBag) []model.Identifier {
	var out []model.Identifier
	for _, bag := range bags {
		s := pageFileName.ReplaceAllString(norm.NFKC.String(flattenBag(bag)), "page")
		out = appendGroupMatches(out, domLabelFirst, s)
		out = appendGroupMatches(out, domLabelAfter, s)
		out = appendGroupMatches(out, domURLParam, s)
	}
	return model.UniqueIdentifiers(out)
}

// flattenBag joins the element fields the DOM patterns look at.
func flattenBag(bag model.AttributeBag) string {
	text := []rune(bag.Get("text"))
	if len(text) > maxElementText {
		text = text[:maxElementText]
	}
	fields := []string{
		bag.Get("href"), bag.Get("onclick"), bag.Get("value"), bag.Get("id"), bag.Get("class"),
		dataset(bag), string(text), bag.Get("alt"), bag.Get("title"), bag.Get("aria-label"),
	}
	return strings.Join(fields, " | ")
}

// dataset renders data-* attributes as "key=value" pairs in key order.
func dataset(bag model.AttributeBag) string {
	var keys []string
	for k := range bag {
		if strings.HasPrefix(k, "data-") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, strings.TrimPrefix(k, "data-")+"="+bag[k])
	}
	return strings.Join(pairs, " ")
}

// ScanFreeText returns identifiers written next to cd_dai assignments or
// machine-number labels anywhere in raw markup and script text, in
// discovery order.
func ScanFreeText(blobs []string) []model.Identifier {
	var out []model.Identifier
	for _, blob := range blobs {
		out = appendGroupMatches(out, freeTextAssign, blob)
		out = appendGroupMatches(out, freeTextLabel, blob)
	}
	return model.UniqueIdentifiers(out)
}
