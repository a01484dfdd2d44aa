package cascade

import (
	"sort"
	"strings"

	"github.com/nao1215/hitscan/internal/model"
)

// RankLinks orders harvested links so that deep links (href containing a
// marker) come first. The order within each group is kept.
func RankLinks(bags []model.AttributeBag, markers []string) []model.AttributeBag {
	out := make([]model.AttributeBag, len(bags))
	copy(out, bags)
	sort.SliceStable(out, func(i, j int) bool {
		return isDeepLink(out[i].Href(), markers) && !isDeepLink(out[j].Href(), markers)
	})
	return out
}

func isDeepLink(href string, markers []string) bool {
	if href == "" {
		return false
	}
	for _, m := range markers {
		if m != "" && strings.Contains(href, m) {
			return true
		}
	}
	return false
}
