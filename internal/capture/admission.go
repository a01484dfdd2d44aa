package capture

import (
	"strings"

	"github.com/nao1215/hitscan/internal/model"
)

// DefaultMaxBytes is the default body size ceiling.
const DefaultMaxBytes = 1_800_000

// DefaultKeywords returns the URL fragments that mark data endpoints on
// the site. Each call returns a fresh slice.
func DefaultKeywords() []string {
	return []string{
		"nc-v02-", "nc-v03-", "nc-v05-", "nc-v06-", "nc-v12-", "nc-v13-",
		"bonu", "history", "detail", "data", "json", "api", "ajax", "cd_m", "cd_dai", "no=",
		"slump", "graph", "daily", "day", "kikan", "hist", "replay", "list", "unit", "hall",
	}
}

// textualTypes are content-type fragments worth keeping regardless of URL.
var textualTypes = []string{"json", "html", "xml", "csv", "javascript", "plain"}

// Admission decides which responses enter the ring.
type Admission struct {
	Keywords []string
	MaxBytes int
}

// NewAdmission returns an admission policy. Empty keywords and a
// non-positive ceiling fall back to the defaults.
func NewAdmission(keywords []string, maxBytes int) Admission {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Admission{Keywords: keywords, MaxBytes: maxBytes}
}

// Admit reports whether a response should be captured: its URL carries a
// keyword or its content type is textual, and its body is non-empty and
// within the size ceiling.
func (a Admission) Admit(s model.ResponseSample) bool {
	if len(s.Body) == 0 || len(s.Body) > a.MaxBytes {
		return false
	}
	return a.matchesURL(s.URL) || isTextual(s.ContentType)
}

func (a Admission) matchesURL(url string) bool {
	for _, k := range a.Keywords {
		if k != "" && strings.Contains(url, k) {
			return true
		}
	}
	return false
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "text/") {
		return true
	}
	for _, t := range textualTypes {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}
