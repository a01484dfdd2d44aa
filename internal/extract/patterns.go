package extract

import "regexp"

// All patterns run on normalized text, so full-width forms are already
// folded to ASCII. Digit groups capture the whole run; length checks happen
// in code because Go's regexp has no lookaround.

const kindToken = `(BIG|B\W*B|ビッグ|REG|R\W*B|レギュラ|RB|BB)`

var (
	// "45G BIG", "45 ゲーム REG"
	hitCountFirst = regexp.MustCompile(`(?i)([0-9]+)\s*(?:G|ゲーム)?\s*` + kindToken)

	// "BIG 45G", "REG45"
	hitKindFirst = regexp.MustCompile(`(?i)` + kindToken + `\s*([0-9]+)\s*(?:G|ゲーム)?`)

	// Split point for the line fallback: right after "<digit>G ".
	unitBoundary = regexp.MustCompile(`(?i)[0-9](?:G|ゲーム)\s`)
)

// Identifier pattern families in priority order.
var (
	idLabel   = regexp.MustCompile(`(?:台番号|台番)\s*[:#]?\s*([0-9]+)`)
	idGeneric = regexp.MustCompile(`(?i)(?:台番号|台番|台|No\.?|#)\s*[:#\- ]*\s*([0-9]+)`)
	idBare    = regexp.MustCompile(`\b([0-9]+)\b`)
	idNear    = regexp.MustCompile(`(?:台|だい)[^0-9]{0,8}([0-9]+)|([0-9]+)[^0-9]{0,8}(?:台|だい)`)

	identifierFamilies = []*regexp.Regexp{idLabel, idGeneric, idBare, idNear}
)

// URL identifier patterns.
var (
	urlQueryKeys   = []string{"no", "dai", "ban", "cd_m", "cd_dai", "id", "unit", "machine"}
	urlQueryParams = compileQueryParams(urlQueryKeys)
	urlPathSegment = regexp.MustCompile(`/([0-9]+)(?:/|$)`)
	urlNumberLabel = regexp.MustCompile(`(?i)(?:NO\.?|#)\s*([0-9]+)`)
)

// DOM and free-text identifier patterns used by the cascade.
var (
	domLabelFirst = regexp.MustCompile(`(?i)(?:dai|unit|machine|no|台番号|台番|台)[^0-9]{0,16}([0-9]+)`)
	domLabelAfter = regexp.MustCompile(`(?i)([0-9]+)[^0-9]{0,16}(?:dai|unit|machine|no|台番号|台番|台)`)
	domURLParam   = regexp.MustCompile(`(?i)[?&#/](?:cd_dai|dai|no|unit|machine)[=/]*([0-9]+)`)

	// Page names such as "nc-v06-001.php" carry numbers of their own and
	// are blanked before the DOM patterns run.
	pageFileName = regexp.MustCompile(`(?i)[a-z0-9_-]*[0-9][a-z0-9_-]*\.(?:php|html?|aspx?|cgi|jsp)\b`)

	onclickIdentifier = regexp.MustCompile(`(?i)(?:cd_dai|dai|no|ban|unit|machine)\D{0,3}([0-9]+)`)

	freeTextAssign = regexp.MustCompile(`(?i)(?:cd_dai\s*=\s*|cd_dai\s*:\s*|cd_dai%5B%5D\s*=\s*|cd_dai%3D)([0-9]+)`)
	freeTextLabel  = regexp.MustCompile(`(?i)(?:cd_dai|machineNo|unit_no|table_no|台番号|台番)\D*?([0-9]+)`)
)

func compileQueryParams(keys []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keys))
	for _, k := range keys {
		out = append(out, regexp.MustCompile(`(?i)[?&]`+regexp.QuoteMeta(k)+`=([0-9]+)`))
	}
	return out
}
