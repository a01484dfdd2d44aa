package extract

import (
	"regexp"
	"strconv"

	"github.com/nao1215/hitscan/internal/model"
)

// maxGameDigits bounds the game count. Longer runs are prices or dates.
const maxGameDigits = 6

// Hit is one (game count, kind) pair found in text.
type Hit struct {
	GameCount int
	Kind      model.Kind
}

// ExtractHits returns every "<number><unit?><kind>" and "<kind><number><unit?>"
// occurrence in normalized. Matches of the first form come first. A number
// that does not parse is skipped.
func ExtractHits(normalized string) []Hit {
	if normalized == "" {
		return nil
	}
	var hits []Hit
	hits = appendHits(hits, hitCountFirst, normalized, 1, 2)
	hits = appendHits(hits, hitKindFirst, normalized, 2, 1)
	return hits
}

func appendHits(hits []Hit, re *regexp.Regexp, s string, numGroup, kindGroup int) []Hit {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		n, ok := parseGameCount(m[numGroup])
		if !ok {
			continue
		}
		hits = append(hits, Hit{GameCount: n, Kind: model.ParseKind(m[kindGroup])})
	}
	return hits
}

func parseGameCount(digits string) (int, bool) {
	if digits == "" || len(digits) > maxGameDigits {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// scanLine runs both extractors on one normalized line. The first
// identifier candidate of the line is attached to every hit.
func scanLine(line string) ([]model.HitRecord, model.Identifier) {
	id := FirstIdentifier(line)
	hits := ExtractHits(line)
	if len(hits) == 0 {
		return nil, id
	}
	records := make([]model.HitRecord, 0, len(hits))
	for _, h := range hits {
		records = append(records, model.HitRecord{Identifier: id, GameCount: h.GameCount, Kind: h.Kind})
	}
	return records, id
}
